package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPut_NonImage_LayoutAndChecksum(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	docID := "abcdef12-0000-0000-0000-000000000000"
	result, err := store.Put(docID, "report.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	wantPrefix := docID[:2]
	if !strings.HasPrefix(result.RelativePath, wantPrefix) {
		t.Errorf("expected relative path to start with shard prefix %q, got %q", wantPrefix, result.RelativePath)
	}
	if !strings.Contains(result.RelativePath, docID) {
		t.Errorf("expected relative path to contain doc id, got %q", result.RelativePath)
	}
	if result.MimeType != "text/plain" {
		t.Errorf("expected text/plain, got %q", result.MimeType)
	}
	if result.Size != int64(len("hello world")) {
		t.Errorf("expected size %d, got %d", len("hello world"), result.Size)
	}

	const wantChecksum = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" // sha256("hello world")
	if result.Checksum != wantChecksum {
		t.Errorf("expected checksum %q, got %q", wantChecksum, result.Checksum)
	}

	if !store.Exists(result.RelativePath) {
		t.Error("expected blob to exist after Put")
	}
}

func TestPut_SanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	docID := "ffeedd00-0000-0000-0000-000000000000"
	result, err := store.Put(docID, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if result.FinalFilename != "passwd" {
		t.Errorf("expected sanitized filename 'passwd', got %q", result.FinalFilename)
	}
	if strings.Contains(result.RelativePath, "..") {
		t.Errorf("relative path must not contain traversal: %q", result.RelativePath)
	}
}

func TestPut_RejectsEmptyFilename(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	_, err := store.Put("ab000000-0000-0000-0000-000000000000", "/", strings.NewReader("x"))
	if err == nil {
		t.Error("expected error for filename that sanitizes to empty/root")
	}
}

func TestDelete_PrunesEmptyParents(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	docID := "cc112233-0000-0000-0000-000000000000"
	result, err := store.Put(docID, "note.txt", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Delete(result.RelativePath); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists(result.RelativePath) {
		t.Error("expected blob to be gone after Delete")
	}

	shardDir := filepath.Join(dir, docID[:2])
	if _, err := os.Stat(shardDir); !os.IsNotExist(err) {
		t.Errorf("expected shard prefix directory to be pruned, stat err=%v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"report.pdf", "report.pdf", false},
		{"../../etc/passwd", "passwd", false},
		{"a/b/c.png", "c.png", false},
		{".", "", true},
		{"..", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := sanitizeFilename(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("sanitizeFilename(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeFilename(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
