// Package chunk implements the deterministic text chunker (C6).
package chunk

import "strings"

// DefaultChunkSize and DefaultOverlap are the spec's defaults.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// largeInputThreshold is the input size above which the sentence-boundary
// search is skipped in favor of the fixed-stride variant, per the design
// note about a pathological slowdown on large documents.
const largeInputThreshold = 64 * 1024

// sentenceBreaks are preferred split points; the latest occurrence of any
// of them in a window wins.
var sentenceBreaks = []string{". ", "! ", "? ", "\n\n"}

// Chunk splits text into overlapping chunks of at most chunkSize bytes,
// preferring sentence-boundary breaks for smaller inputs and a
// fixed-stride split for large ones. Contract:
//   - empty input -> nil
//   - len(text) <= chunkSize -> [text] (trimmed)
//   - otherwise, each chunk ends at a preferred break at the latest
//     ". ", "! ", "? ", "\n\n", else the latest space, else the raw byte
//     boundary (the fixed-stride variant always uses the raw boundary),
//     and the next chunk starts overlap bytes before that end.
func Chunk(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		t := strings.TrimSpace(text)
		if t == "" {
			return nil
		}
		return []string{t}
	}

	if len(text) >= largeInputThreshold {
		return fixedStrideChunk(text, chunkSize, overlap)
	}
	return sentenceBoundaryChunk(text, chunkSize, overlap)
}

// sentenceBoundaryChunk prefers splitting at sentence/paragraph
// boundaries within each chunkSize-wide window. The boundary search is
// confined to the current window, so cost is linear in len(text).
func sentenceBoundaryChunk(text string, chunkSize, overlap int) []string {
	var chunks []string
	start := 0
	n := len(text)

	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}

		if end < n {
			window := text[start:end]
			if brk, ok := bestSentenceBreak(window); ok {
				end = start + brk
			} else if sp := strings.LastIndexByte(window, ' '); sp >= 0 {
				end = start + sp + 1
			}
			// else: raw byte boundary, end stays as computed above.
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end // guarantee forward progress
		}
		start = next
	}

	return chunks
}

// bestSentenceBreak finds the latest occurrence of any preferred break
// marker in window, returning the byte offset immediately after the
// marker.
func bestSentenceBreak(window string) (int, bool) {
	best := -1
	bestLen := 0
	for _, marker := range sentenceBreaks {
		if idx := strings.LastIndex(window, marker); idx >= 0 {
			end := idx + len(marker)
			if end > best {
				best = end
				bestLen = len(marker)
			}
		}
	}
	_ = bestLen
	if best < 0 {
		return 0, false
	}
	return best, true
}

// fixedStrideChunk splits at fixed byte offsets with no boundary search,
// used for inputs large enough that a boundary search risks super-linear
// behavior.
func fixedStrideChunk(text string, chunkSize, overlap int) []string {
	var chunks []string
	start := 0
	n := len(text)
	stride := chunkSize - overlap
	if stride <= 0 {
		stride = chunkSize
	}

	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= n {
			break
		}
		start += stride
	}

	return chunks
}
