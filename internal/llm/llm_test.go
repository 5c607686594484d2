package llm

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestStripCodeFences_PlainJSON(t *testing.T) {
	in := `{"title":"x"}`
	if got := stripCodeFences(in); got != in {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestStripCodeFences_JSONFence(t *testing.T) {
	in := "```json\n{\"title\":\"x\"}\n```"
	got := stripCodeFences(in)
	if got != `{"title":"x"}` {
		t.Errorf("unexpected: %q", got)
	}
}

func TestStripCodeFences_PlainFence(t *testing.T) {
	in := "```\n{\"title\":\"x\"}\n```"
	got := stripCodeFences(in)
	if got != `{"title":"x"}` {
		t.Errorf("unexpected: %q", got)
	}
}

func TestParseMetadata_Valid(t *testing.T) {
	raw := `{"title":"Invoice #42","correspondent":"Acme Corp","document_date":"2024-03-01","document_type":"invoice","summary":"An invoice.","suggested_tags":["invoice","acme"]}`
	got := parseMetadata(raw)
	if got.Title != "Invoice #42" || got.Correspondent != "Acme Corp" || got.DocumentDate != "2024-03-01" {
		t.Errorf("unexpected metadata: %+v", got)
	}
	if len(got.SuggestedTags) != 2 {
		t.Errorf("expected 2 tags, got %v", got.SuggestedTags)
	}
}

func TestParseMetadata_CapsSuggestedTagsAndLongFields(t *testing.T) {
	tags := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		tags = append(tags, `"tag"`)
	}
	longSummary := strings.Repeat("s", maxSummaryLen+200)
	raw := `{"title":"x","correspondent":"y","document_type":"z","summary":"` + longSummary + `","suggested_tags":[` + strings.Join(tags, ",") + `]}`

	got := parseMetadata(raw)
	if len(got.SuggestedTags) != maxSuggestedTags {
		t.Errorf("expected suggested_tags capped to %d, got %d", maxSuggestedTags, len(got.SuggestedTags))
	}
	if len([]rune(got.Summary)) != maxSummaryLen {
		t.Errorf("expected summary capped to %d runes, got %d", maxSummaryLen, len([]rune(got.Summary)))
	}
}

func TestParseMetadata_MalformedReturnsEmpty(t *testing.T) {
	got := parseMetadata("not json at all")
	if !reflect.DeepEqual(got, model.ExtractedMetadata{}) {
		t.Errorf("expected zero-value metadata for malformed input, got %+v", got)
	}
}

func TestParseMetadata_FencedJSON(t *testing.T) {
	raw := "```json\n{\"title\":\"Receipt\"}\n```"
	got := parseMetadata(raw)
	if got.Title != "Receipt" {
		t.Errorf("expected fenced JSON to parse, got %+v", got)
	}
}

func TestBuildMetadataPrompt_Truncates(t *testing.T) {
	long := strings.Repeat("a", maxMetadataInputChars+500)
	prompt := buildMetadataPrompt(long, "file.pdf", nil)
	if strings.Count(prompt, "a") > maxMetadataInputChars {
		t.Errorf("expected truncation to %d chars", maxMetadataInputChars)
	}
}

func TestBuildMetadataPrompt_IncludesExistingTags(t *testing.T) {
	prompt := buildMetadataPrompt("hello", "file.pdf", []string{"receipts", "2024"})
	if !strings.Contains(prompt, "receipts, 2024") {
		t.Errorf("expected existing tags in prompt, got %q", prompt)
	}
}

func TestBuildAnswerPrompt_NumbersExcerpts(t *testing.T) {
	chunks := []model.ChunkResult{
		{Title: "Doc A", ChunkText: "alpha text"},
		{Title: "Doc B", ChunkText: "beta text"},
	}
	prompt := buildAnswerPrompt("what is alpha?", chunks)
	if !strings.Contains(prompt, "Document excerpt 1 (Doc A):") {
		t.Errorf("missing excerpt 1 header: %q", prompt)
	}
	if !strings.Contains(prompt, "Document excerpt 2 (Doc B):") {
		t.Errorf("missing excerpt 2 header: %q", prompt)
	}
	if !strings.Contains(prompt, "Question: what is alpha?") {
		t.Errorf("missing question: %q", prompt)
	}
}
