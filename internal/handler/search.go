package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/retrieval"
)

// SearchHandler serves the retrieval engine's three modes (C10) over the
// caller's accessible document set.
type SearchHandler struct {
	retrieval    *retrieval.Engine
	defaultLimit int
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(retrievalEngine *retrieval.Engine, defaultLimit int) *SearchHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &SearchHandler{retrieval: retrievalEngine, defaultLimit: defaultLimit}
}

type searchResultResponse struct {
	Document     documentResponse `json:"document"`
	Score        float64          `json:"score"`
	Highlights   []string         `json:"highlights,omitempty"`
	MatchedChunk *string          `json:"matched_chunk,omitempty"`
}

// Search handles GET /v1/search?q=&mode=fulltext|semantic|hybrid&limit=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeAppErr(w, apperr.InvalidInputf("q query parameter is required"))
		return
	}

	mode := retrieval.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = retrieval.ModeHybrid
	}
	switch mode {
	case retrieval.ModeFulltext, retrieval.ModeSemantic, retrieval.ModeHybrid:
	default:
		writeAppErr(w, apperr.InvalidInputf("unknown mode %q", mode))
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.retrieval.Search(ctx, mode, query, user, limit)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "search failed", err))
		return
	}

	out := make([]searchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, searchResultResponse{
			Document:     toDocumentResponse(res.Document),
			Score:        res.Score,
			Highlights:   res.Highlights,
			MatchedChunk: res.MatchedChunk,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out, "mode": mode, "query": query})
}
