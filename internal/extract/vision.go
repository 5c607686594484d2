package extract

// visionLLMEngine is the vision-llm OCR backend: a multimodal model
// reached over the same JSON-over-HTTP sidecar shape as the other
// engines, just pointed at a different endpoint/env var. Unlike
// paddleocr/easyocr it is not part of the auto-mode fallback pair since
// it implies a materially different cost profile; it is only selected
// when explicitly configured.
func newVisionLLMEngine() OCREngine {
	return newHTTPOCREngine("vision-llm", envOr("VISION_LLM_OCR_URL", "http://localhost:8868"))
}
