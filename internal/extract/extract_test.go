package extract

import "testing"

func TestIsDocumentExtension(t *testing.T) {
	cases := map[string]bool{
		".pdf":  true,
		".PDF":  true,
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".tif":  true,
		".tiff": true,
		".bmp":  true,
		".txt":  false,
		".docx": false,
	}
	for ext, want := range cases {
		if got := IsDocumentExtension(ext); got != want {
			t.Errorf("IsDocumentExtension(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestExtractTextFromStream_TjOperator(t *testing.T) {
	stream := []byte("(Hello World) Tj\n")
	got := extractTextFromStream(stream)
	if got != "Hello World" {
		t.Errorf("expected %q, got %q", "Hello World", got)
	}
}

func TestExtractTextFromStream_EscapedParens(t *testing.T) {
	stream := []byte(`(a \(b\) c) Tj` + "\n")
	got := extractTextFromStream(stream)
	if got != "a (b) c" {
		t.Errorf("unexpected decode: %q", got)
	}
}

func TestCleanPDFText_CollapsesWhitespace(t *testing.T) {
	got := cleanPDFText("hello   \t world  \n\n  foo")
	if got != "hello world\n\nfoo" {
		t.Errorf("unexpected: %q", got)
	}
}

func TestResolveEngine_UnknownProvider(t *testing.T) {
	_, err := resolveEngine(nil, Config{OCRProvider: "bogus"})
	if err == nil {
		t.Error("expected error for unknown ocr provider")
	}
}
