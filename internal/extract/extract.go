// Package extract implements the text extractor (C4): PDF embedded-text
// extraction with an OCR fallback, and single-image OCR, driven by a
// pluggable OCR engine selected at runtime.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// minEmbeddedTextLen is the "probably a scanned page" threshold: below
// this many characters of stripped embedded text, OCR is attempted
// instead (when enabled), even without force_ocr.
const minEmbeddedTextLen = 50

// docExtensions lists the extensions the extractor (and the directory
// watcher ingest source) treats as ingestible documents.
var docExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// IsDocumentExtension reports whether ext (as returned by filepath.Ext,
// case-insensitive) names a supported document type.
func IsDocumentExtension(ext string) bool {
	return docExtensions[strings.ToLower(ext)]
}

// Config is the subset of service configuration the extractor needs.
type Config struct {
	OCREnabled  bool
	OCRProvider string // auto | paddleocr | easyocr | vision-llm
	OCRLangs    []string
	OCRUseGPU   bool
}

// Extractor drives PDF/image text extraction with OCR fallback.
type Extractor struct {
	cfg    Config
	engine OCREngine
}

// NewExtractor builds an Extractor, resolving and initializing the
// configured OCR engine (if enabled).
func NewExtractor(ctx context.Context, cfg Config) (*Extractor, error) {
	e := &Extractor{cfg: cfg}
	if !cfg.OCREnabled {
		return e, nil
	}
	engine, err := resolveEngine(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve ocr engine: %w", err)
	}
	e.engine = engine
	return e, nil
}

// resolveEngine implements the auto|paddleocr|easyocr|vision-llm
// selection: in auto mode, prefer the higher-accuracy engine on
// x86/AMD64 and the more portable engine on ARM, falling back to the
// alternate on init failure.
func resolveEngine(ctx context.Context, cfg Config) (OCREngine, error) {
	switch cfg.OCRProvider {
	case "paddleocr":
		return initOrErr(ctx, newPaddleOCREngine(), cfg)
	case "easyocr":
		return initOrErr(ctx, newEasyOCREngine(), cfg)
	case "vision-llm":
		return initOrErr(ctx, newVisionLLMEngine(), cfg)
	case "", "auto":
		preferred, alternate := newPaddleOCREngine(), newEasyOCREngine()
		if runtime.GOARCH == "arm64" || runtime.GOARCH == "arm" {
			preferred, alternate = newEasyOCREngine(), newPaddleOCREngine()
		}
		if engine, err := initOrErr(ctx, preferred, cfg); err == nil {
			return engine, nil
		}
		return initOrErr(ctx, alternate, cfg)
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.OCRProvider)
	}
}

func initOrErr(ctx context.Context, engine OCREngine, cfg Config) (OCREngine, error) {
	if err := engine.Initialize(ctx, cfg.OCRLangs, cfg.OCRUseGPU); err != nil {
		return nil, err
	}
	return engine, nil
}

// Result is the outcome of an extraction attempt.
type Result struct {
	Text      string
	PageCount int // 0 when not applicable (non-PDF input)
}

// PageCountPtr returns a pointer to PageCount, or nil when it doesn't
// apply (non-PDF input never sets it above 0).
func (r Result) PageCountPtr() *int {
	if r.PageCount <= 0 {
		return nil
	}
	pc := r.PageCount
	return &pc
}

// PrimaryLanguage returns the first configured OCR language, or "en" if
// none was configured; this is recorded as the detected language since
// the sidecar OCR protocol doesn't report per-call language detection.
func (e *Extractor) PrimaryLanguage() string {
	if len(e.cfg.OCRLangs) > 0 {
		return e.cfg.OCRLangs[0]
	}
	return "en"
}

// Extract extracts text from the file at path. A nil error with empty
// Text means "no text could be extracted" (the caller maps this to
// ocr_failed); a non-nil error means an exception occurred (the caller
// maps this to failed).
func (e *Extractor) Extract(ctx context.Context, path string, forceOCR bool) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return e.extractPDF(ctx, path, forceOCR)
	case docExtensions[ext]:
		if !e.cfg.OCREnabled || e.engine == nil {
			return Result{}, nil
		}
		text, err := e.extractImage(ctx, path)
		return Result{Text: text}, err
	default:
		return Result{}, fmt.Errorf("unsupported extension %q", ext)
	}
}

// extractImage applies the >2MiB resize pre-pass, then OCRs the image,
// always cleaning up the temp file it creates.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat image: %w", err)
	}

	ocrPath := path
	if info.Size() > 2*1024*1024 {
		resized, cleanup, err := resizeForOCR(path)
		if err != nil {
			return "", fmt.Errorf("resize for ocr: %w", err)
		}
		defer cleanup()
		ocrPath = resized
	}

	return e.engine.ExtractText(ctx, ocrPath)
}
