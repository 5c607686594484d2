package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/llm"
	"github.com/tedkulp/cartulary-go/internal/model"
	"github.com/tedkulp/cartulary-go/internal/rag"
)

// RAGHandler serves the grounded question-answering endpoint (C11).
type RAGHandler struct {
	answerer *rag.Answerer
}

// NewRAGHandler builds a RAGHandler.
func NewRAGHandler(answerer *rag.Answerer) *RAGHandler {
	return &RAGHandler{answerer: answerer}
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type askRequest struct {
	Question  string        `json:"question"`
	History   []historyTurn `json:"history"`
	NumChunks int           `json:"num_chunks"`
	Threshold float64       `json:"threshold"`
}

type askResponse struct {
	Answer     string             `json:"answer"`
	Sources    []documentResponse `json:"sources"`
	ChunksUsed []chunkResponse    `json:"chunks_used"`
}

type chunkResponse struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkText  string `json:"chunk_text"`
}

// Ask handles POST /v1/ask.
func (h *RAGHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppErr(w, apperr.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	if req.Question == "" {
		writeAppErr(w, apperr.InvalidInputf("question is required"))
		return
	}

	history := make([]llm.ConversationTurn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, llm.ConversationTurn{Role: t.Role, Content: t.Content})
	}

	answer, err := h.answerer.Answer(ctx, req.Question, user, history, req.NumChunks, req.Threshold)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to generate answer", err))
		return
	}

	writeJSON(w, http.StatusOK, toAskResponse(answer))
}

func toAskResponse(a model.RAGAnswer) askResponse {
	sources := make([]documentResponse, 0, len(a.Sources))
	for _, d := range a.Sources {
		sources = append(sources, toDocumentResponse(d))
	}
	chunks := make([]chunkResponse, 0, len(a.ChunksUsed))
	for _, c := range a.ChunksUsed {
		chunks = append(chunks, chunkResponse{ChunkID: c.ID, DocumentID: c.DocumentID, ChunkText: c.ChunkText})
	}
	return askResponse{Answer: a.Answer, Sources: sources, ChunksUsed: chunks}
}
