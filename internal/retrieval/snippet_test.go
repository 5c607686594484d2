package retrieval

import (
	"strings"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func ptr(s string) *string { return &s }

func TestExtractSnippets_HighlightsAllTerms(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog near the riverbank"
	d := model.Document{OCRText: ptr(text)}

	snippets := extractSnippets(d, "fox dog", 3, 10)
	if len(snippets) == 0 {
		t.Fatal("expected at least one snippet")
	}
	joined := strings.Join(snippets, " ")
	if !strings.Contains(joined, "<mark>fox</mark>") {
		t.Errorf("expected fox highlighted, got %q", joined)
	}
}

func TestExtractSnippets_NoMatchReturnsEmpty(t *testing.T) {
	d := model.Document{OCRText: ptr("nothing relevant here")}
	snippets := extractSnippets(d, "zebra", 3, 10)
	if len(snippets) != 0 {
		t.Errorf("expected no snippets, got %v", snippets)
	}
}

func TestExtractSnippets_NilOCRText(t *testing.T) {
	d := model.Document{}
	if got := extractSnippets(d, "anything", 3, 10); got != nil {
		t.Errorf("expected nil for missing ocr_text, got %v", got)
	}
}

func TestExtractSnippets_EllipsesOnTruncation(t *testing.T) {
	text := strings.Repeat("a", 200) + " needle " + strings.Repeat("b", 200)
	d := model.Document{OCRText: ptr(text)}
	snippets := extractSnippets(d, "needle", 1, 20)
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	if !strings.HasPrefix(snippets[0], "…") || !strings.HasSuffix(snippets[0], "…") {
		t.Errorf("expected both-side ellipsis, got %q", snippets[0])
	}
}

func TestExtractSnippets_HighlightsTermsBeyondMaxSnippets(t *testing.T) {
	text := "alpha bravo charlie delta appears near alpha again in this passage"
	d := model.Document{OCRText: ptr(text)}

	// "delta" is the 4th term and exceeds maxSnippets=3 for window
	// selection, but it falls inside the window opened by "alpha" and
	// must still be highlighted.
	snippets := extractSnippets(d, "alpha bravo charlie delta", 3, 40)
	if len(snippets) == 0 {
		t.Fatal("expected at least one snippet")
	}
	joined := strings.Join(snippets, " ")
	if !strings.Contains(joined, "<mark>delta</mark>") {
		t.Errorf("expected delta highlighted even though it's past maxSnippets, got %q", joined)
	}
}

func TestHighlightTerms_NonOverlappingMerge(t *testing.T) {
	got := highlightTerms("foobar", []string{"foo", "oob"})
	if !strings.Contains(got, "<mark>") {
		t.Errorf("expected merged highlight, got %q", got)
	}
}
