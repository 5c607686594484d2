package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF extracts text page-by-page. Per page, unless forceOCR, the
// embedded content stream is tried first; when that yields too little
// text (or forceOCR is set) and OCR is enabled, the page is rendered to
// PNG at 2x zoom and OCR'd instead. A page whose OCR fails is logged and
// skipped, and a page whose embedded text cannot be read is treated as
// empty; neither aborts the document.
func (e *Extractor) extractPDF(ctx context.Context, path string, forceOCR bool) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		text := ""
		if !forceOCR {
			text = embeddedPageText(pctx, pageNr)
		}
		if (forceOCR || len(strings.TrimSpace(text)) < minEmbeddedTextLen) && e.cfg.OCREnabled && e.engine != nil {
			ocrText, err := e.ocrPage(ctx, path, pageNr)
			if err != nil {
				slog.Warn("extract: page ocr failed, skipping", "path", path, "page", pageNr, "error", err)
			} else if strings.TrimSpace(ocrText) != "" {
				text = ocrText
			}
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return Result{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: pctx.PageCount,
	}, nil
}

// embeddedPageText extracts the embedded text content stream of a page,
// returning "" on any per-page failure (callers skip and continue).
func embeddedPageText(pctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return cleanPDFText(extractTextFromStream(data))
}

// ocrPage rasterizes a single PDF page at 2x zoom into a temp PNG and
// hands it to the configured OCR engine, always cleaning the temp file.
func (e *Extractor) ocrPage(ctx context.Context, path string, pageNr int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "extract-page-*")
	if err != nil {
		return "", fmt.Errorf("mkdtemp: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath, err := rasterizePage(path, pageNr, tmpDir, 2.0)
	if err != nil {
		return "", fmt.Errorf("rasterize page %d: %w", pageNr, err)
	}
	return e.engine.ExtractText(ctx, imgPath)
}

// extractTextFromStream parses PDF content-stream text operators well
// enough to recover visible text without a full tokenizing PDF content
// interpreter.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasSuffix(line, "Tj"), strings.HasSuffix(line, "TJ"):
			for _, s := range parenStrings(line) {
				sb.WriteString(decodePDFString(s))
			}
		case strings.HasSuffix(line, "'") && strings.Contains(line, "("):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			for _, s := range parenStrings(line) {
				sb.WriteString(decodePDFString(s))
			}
		case strings.HasSuffix(line, "Td"), strings.HasSuffix(line, "TD"):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case line == "T*":
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// parenStrings extracts the contents of top-level (...) literals in a
// content-stream operator line.
func parenStrings(line string) []string {
	var out []string
	depth := 0
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			cur.WriteByte(c)
			cur.WriteByte(line[i+1])
			i++
			continue
		}
		if c == '(' {
			if depth > 0 {
				cur.WriteByte(c)
			}
			depth++
			continue
		}
		if c == ')' {
			depth--
			if depth == 0 {
				out = append(out, cur.String())
				cur.Reset()
			} else if depth > 0 {
				cur.WriteByte(c)
			}
			continue
		}
		if depth > 0 {
			cur.WriteByte(c)
		}
	}
	return out
}

func decodePDFString(raw string) string {
	var sb strings.Builder
	b := []byte(raw)
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
			switch b[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\', '(', ')':
				sb.WriteByte(b[i])
			default:
				if b[i] >= '0' && b[i] <= '7' {
					val := int(b[i] - '0')
					for j := 0; j < 2 && i+1 < len(b) && b[i+1] >= '0' && b[i+1] <= '7'; j++ {
						i++
						val = val*8 + int(b[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(b[i])
				}
			}
			continue
		}
		sb.WriteByte(b[i])
	}
	return sb.String()
}

// cleanPDFText collapses each run of whitespace to a single space, to a
// single newline if the run contains exactly one, or to a blank line
// ("\n\n") if it contains two or more, preserving paragraph breaks from
// the operator walk without leaving stray spaces beside them.
func cleanPDFText(text string) string {
	var sb strings.Builder
	newlineCount := 0
	inRun := false
	for _, r := range text {
		switch {
		case r == '\n' || r == ' ' || r == '\t' || r == '\r':
			inRun = true
			if r == '\n' {
				newlineCount++
			}
		default:
			if inRun {
				if sb.Len() > 0 {
					switch {
					case newlineCount >= 2:
						sb.WriteString("\n\n")
					case newlineCount == 1:
						sb.WriteByte('\n')
					default:
						sb.WriteByte(' ')
					}
				}
				inRun, newlineCount = false, 0
			}
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
