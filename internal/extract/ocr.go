package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// OCREngine is the capability set every OCR backend implements: init once
// with languages/GPU preference, then extract text from an image path.
// Confidence threshold >= 0.5 per token is applied by each backend before
// tokens are concatenated into the returned text.
type OCREngine interface {
	Name() string
	Initialize(ctx context.Context, langs []string, useGPU bool) error
	ExtractText(ctx context.Context, path string) (string, error)
}

// minTokenConfidence is the per-token acceptance threshold.
const minTokenConfidence = 0.5

// sidecarRequest is the wire shape every OCR sidecar accepts: a
// base64-encoded image plus init parameters it is safe to resend per
// call (the sidecar is responsible for its own model caching).
type sidecarRequest struct {
	ImageBase64 string   `json:"image_base64"`
	Languages   []string `json:"languages"`
	UseGPU      bool     `json:"use_gpu"`
}

type sidecarToken struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type sidecarResponse struct {
	Tokens []sidecarToken `json:"tokens"`
}

// httpOCREngine is the shared HTTP-sidecar implementation backing
// paddleocr and easyocr: each is reached as a small JSON-over-HTTP
// service (there is no pure-Go OCR engine in the pack or a typical
// ecosystem choice for these specific named engines), the same
// direct-request shape the rest of the service uses for its other
// pluggable provider backends.
type httpOCREngine struct {
	name      string
	baseURL   string
	langs     []string
	useGPU    bool
	client    *http.Client
	healthURL string
}

func newHTTPOCREngine(name, baseURL string) *httpOCREngine {
	return &httpOCREngine{
		name:      name,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{Timeout: 60 * time.Second},
		healthURL: strings.TrimSuffix(baseURL, "/") + "/health",
	}
}

func (e *httpOCREngine) Name() string { return e.name }

func (e *httpOCREngine) Initialize(ctx context.Context, langs []string, useGPU bool) error {
	e.langs, e.useGPU = langs, useGPU
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s health check: %w", e.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health check: status %d", e.name, resp.StatusCode)
	}
	return nil
}

func (e *httpOCREngine) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image for ocr: %w", err)
	}

	body, err := json.Marshal(sidecarRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Languages:   e.langs,
		UseGPU:      e.useGPU,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s ocr request: %w", e.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s ocr: unexpected status %d", e.name, resp.StatusCode)
	}

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode %s ocr response: %w", e.name, err)
	}

	var lines []string
	for _, tok := range out.Tokens {
		if tok.Confidence >= minTokenConfidence && strings.TrimSpace(tok.Text) != "" {
			lines = append(lines, tok.Text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func newPaddleOCREngine() OCREngine {
	return newHTTPOCREngine("paddleocr", envOr("PADDLEOCR_URL", "http://localhost:8866"))
}

func newEasyOCREngine() OCREngine {
	return newHTTPOCREngine("easyocr", envOr("EASYOCR_URL", "http://localhost:8867"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
