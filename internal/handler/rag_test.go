package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestAsk_InvalidJSON(t *testing.T) {
	h := NewRAGHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	h.Ask(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAsk_MissingQuestion(t *testing.T) {
	h := NewRAGHandler(nil)
	body, _ := json.Marshal(askRequest{Question: ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Ask(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestToAskResponse_MapsSourcesAndChunks(t *testing.T) {
	answer := model.RAGAnswer{
		Answer:     "the invoice total is $42",
		Sources:    []model.Document{{ID: "d1"}},
		ChunksUsed: []model.DocumentChunk{{ID: "c1", DocumentID: "d1", ChunkText: "total: $42"}},
	}
	resp := toAskResponse(answer)

	if resp.Answer != answer.Answer {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "d1" {
		t.Errorf("sources: got %+v", resp.Sources)
	}
	if len(resp.ChunksUsed) != 1 || resp.ChunksUsed[0].ChunkID != "c1" {
		t.Errorf("chunks: got %+v", resp.ChunksUsed)
	}
}
