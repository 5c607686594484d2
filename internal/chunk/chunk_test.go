package chunk

import (
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	got := Chunk("", DefaultChunkSize, DefaultOverlap)
	if len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %v", got)
	}
}

func TestChunk_ShortInputReturnsSingleChunk(t *testing.T) {
	text := "a short document that fits in one chunk."
	got := Chunk(text, 500, 50)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(got), got)
	}
	if got[0] != text {
		t.Errorf("expected chunk to equal input, got %q", got[0])
	}
}

func TestChunk_NoChunkExceedsSize(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	got := Chunk(text, 100, 20)
	for i, c := range got {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds chunk size: len=%d", i, len(c))
		}
	}
}

func TestChunk_PreservesAllNonWhitespaceCharactersInOrder(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)
	got := Chunk(text, 200, 40)

	joined := strings.Join(got, "")
	stripSpace := func(s string) string {
		var sb strings.Builder
		for _, r := range s {
			if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
				sb.WriteRune(r)
			}
		}
		return sb.String()
	}

	wantNonSpace := stripSpace(text)
	gotNonSpace := stripSpace(joined)
	// Overlap repeats spans, so the original must appear as an in-order
	// subsequence of the joined chunks rather than as a substring.
	i := 0
	for j := 0; j < len(gotNonSpace) && i < len(wantNonSpace); j++ {
		if gotNonSpace[j] == wantNonSpace[i] {
			i++
		}
	}
	if i != len(wantNonSpace) {
		t.Errorf("expected reconstructed text to preserve original content in order")
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 90) + ". " + strings.Repeat("b", 90) + ". " + strings.Repeat("c", 90)
	got := Chunk(text, 100, 10)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	if !strings.HasSuffix(got[0], ".") {
		t.Errorf("expected first chunk to end at a sentence boundary, got suffix %q", got[0][len(got[0])-5:])
	}
}

func TestChunk_OverlapNeverExceedsConfigured(t *testing.T) {
	text := strings.Repeat("x", 3000)
	overlap := 50
	got := Chunk(text, 500, overlap)
	for i := 1; i < len(got); i++ {
		if len(got[i]) > 0 && len(got[i-1]) > 0 {
			// crude bound: no chunk should be larger than chunkSize even
			// after accounting for overlap.
			if len(got[i]) > 500 {
				t.Errorf("chunk %d exceeds configured size with overlap", i)
			}
		}
	}
}

func TestChunk_FixedStrideForLargeInput(t *testing.T) {
	text := strings.Repeat("word ", 20000) // well above the large-input threshold
	got := Chunk(text, 500, 50)
	if len(got) == 0 {
		t.Fatal("expected chunks for large input")
	}
	for i, c := range got {
		if len(c) > 500 {
			t.Errorf("fixed-stride chunk %d exceeds chunk size: len=%d", i, len(c))
		}
	}
}

func TestChunk_NoEmptyChunks(t *testing.T) {
	text := strings.Repeat("  \n\n  word  \n\n  ", 200)
	got := Chunk(text, 50, 10)
	for i, c := range got {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty after trim", i)
		}
	}
}

func TestChunk_DefaultsAppliedOnInvalidConfig(t *testing.T) {
	text := strings.Repeat("x", 1000)
	got := Chunk(text, 0, -5)
	if len(got) == 0 {
		t.Fatal("expected chunks with defaulted config")
	}
}
