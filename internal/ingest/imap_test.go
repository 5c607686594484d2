package ingest

import "testing"

func TestDecodeHeaderWord_PlainFilenamePassesThrough(t *testing.T) {
	got := decodeHeaderWord("invoice.pdf")
	if got != "invoice.pdf" {
		t.Errorf("got %q, want %q", got, "invoice.pdf")
	}
}

func TestDecodeHeaderWord_DecodesEncodedWord(t *testing.T) {
	got := decodeHeaderWord("=?UTF-8?Q?rechnung=2Epdf?=")
	if got != "rechnung.pdf" {
		t.Errorf("got %q, want %q", got, "rechnung.pdf")
	}
}

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"invoice.pdf":    ".pdf",
		"scan.PNG":       ".png",
		"noextension":    "",
		"archive.tar.gz": ".gz",
		".hidden":        ".hidden",
	}
	for name, want := range cases {
		if got := extOf(name); got != want {
			t.Errorf("extOf(%q) = %q, want %q", name, got, want)
		}
	}
}
