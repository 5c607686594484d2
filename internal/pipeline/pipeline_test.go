package pipeline

import "testing"

func TestNormalizeTags(t *testing.T) {
	in := []string{"  Invoices ", "ACME", "", "   ", "a-very-long-tag-that-exceeds-the-fifty-character-limit-by-a-lot"}
	got := normalizeTags(in)

	if len(got) != 3 {
		t.Fatalf("expected 3 tags, got %d: %v", len(got), got)
	}
	if got[0] != "invoices" {
		t.Errorf("expected trimmed/lowercased, got %q", got[0])
	}
	if got[1] != "acme" {
		t.Errorf("expected lowercased, got %q", got[1])
	}
	if len(got[2]) != 50 {
		t.Errorf("expected truncation to 50 chars, got %d: %q", len(got[2]), got[2])
	}
}
