package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestToDocumentResponse_OmitsOCRText(t *testing.T) {
	ocr := "sensitive extracted body text"
	doc := model.Document{
		ID:      "d1",
		OwnerID: "u1",
		Title:   "Invoice",
		OCRText: &ocr,
	}

	data, err := json.Marshal(toDocumentResponse(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	if _, ok := decoded["ocr_text"]; ok {
		t.Error("documentResponse must never serialize the full OCR text")
	}
	if decoded["id"] != "d1" {
		t.Errorf("id: got %v", decoded["id"])
	}
}

func TestToDocumentResponse_OmitsEmptyOptionalFields(t *testing.T) {
	doc := model.Document{ID: "d1", OwnerID: "u1", CreatedAt: time.Now()}

	data, _ := json.Marshal(toDocumentResponse(doc))
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	for _, field := range []string{"ocr_language", "page_count", "extracted_title", "processing_error"} {
		if _, ok := decoded[field]; ok {
			t.Errorf("expected %q to be omitted when nil", field)
		}
	}
}

func TestDocumentListResponse_Serialization(t *testing.T) {
	resp := documentListResponse{
		Documents: []documentResponse{toDocumentResponse(model.Document{ID: "d1"})},
		Total:     1,
		Page:      1,
		Limit:     20,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	if decoded["total"] != float64(1) {
		t.Errorf("total: got %v", decoded["total"])
	}
}
