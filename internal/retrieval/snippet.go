package retrieval

import (
	"strings"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// span is a byte-offset range shared by window deduplication and term
// highlighting.
type span struct{ start, end int }

// extractSnippets implements the fulltext snippet-highlighting rule:
// split the query on whitespace, for each of the first maxSnippets
// terms find its first case-insensitive occurrence in ocr_text, take
// +/-contextChars bytes around it, wrap every query term (not just the
// triggering one) in <mark></mark>, and add ellipses where the window
// was truncated. Windows that collapse onto the same match are deduped.
func extractSnippets(d model.Document, query string, maxSnippets, contextChars int) []string {
	if d.OCRText == nil || strings.TrimSpace(*d.OCRText) == "" {
		return nil
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil
	}
	windowTerms := terms
	if len(windowTerms) > maxSnippets {
		windowTerms = windowTerms[:maxSnippets]
	}

	text := *d.OCRText
	lowerText := strings.ToLower(text)

	var windows []span

	for _, term := range windowTerms {
		lowerTerm := strings.ToLower(term)
		idx := strings.Index(lowerText, lowerTerm)
		if idx < 0 {
			continue
		}
		start := idx - contextChars
		if start < 0 {
			start = 0
		}
		end := idx + len(term) + contextChars
		if end > len(text) {
			end = len(text)
		}
		if isDuplicateWindow(windows, start, end) {
			continue
		}
		windows = append(windows, span{start, end})
	}

	snippets := make([]string, 0, len(windows))
	for _, w := range windows {
		raw := text[w.start:w.end]
		highlighted := highlightTerms(raw, terms)
		if w.start > 0 {
			highlighted = "…" + highlighted
		}
		if w.end < len(text) {
			highlighted = highlighted + "…"
		}
		snippets = append(snippets, highlighted)
	}
	return snippets
}

// isDuplicateWindow collapses a new window onto an existing one if
// their spans overlap.
func isDuplicateWindow(windows []span, start, end int) bool {
	for _, w := range windows {
		if start < w.end && end > w.start {
			return true
		}
	}
	return false
}

// highlightTerms wraps every case-insensitive occurrence of any term in
// raw with <mark></mark>, left to right, non-overlapping.
func highlightTerms(raw string, terms []string) string {
	lowerRaw := strings.ToLower(raw)
	var matches []span

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		if lowerTerm == "" {
			continue
		}
		pos := 0
		for {
			idx := strings.Index(lowerRaw[pos:], lowerTerm)
			if idx < 0 {
				break
			}
			start := pos + idx
			end := start + len(term)
			matches = append(matches, span{start, end})
			pos = end
		}
	}
	if len(matches) == 0 {
		return raw
	}

	sortSpans(matches)
	merged := mergeOverlapping(matches)

	var sb strings.Builder
	last := 0
	for _, m := range merged {
		if m.start < last {
			continue
		}
		sb.WriteString(raw[last:m.start])
		sb.WriteString("<mark>")
		sb.WriteString(raw[m.start:m.end])
		sb.WriteString("</mark>")
		last = m.end
	}
	sb.WriteString(raw[last:])
	return sb.String()
}

func sortSpans(spans []span) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}

func mergeOverlapping(spans []span) []span {
	var out []span
	for _, m := range spans {
		if len(out) > 0 && m.start <= out[len(out)-1].end {
			if m.end > out[len(out)-1].end {
				out[len(out)-1].end = m.end
			}
			continue
		}
		out = append(out, m)
	}
	return out
}
