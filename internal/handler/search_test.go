package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/retrieval"
)

func TestSearch_MissingQueryReturns400(t *testing.T) {
	h := NewSearchHandler(nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestSearch_UnknownModeReturns400(t *testing.T) {
	h := NewSearchHandler(nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=invoice&mode=bogus", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestNewSearchHandler_DefaultsLimitWhenNonPositive(t *testing.T) {
	h := NewSearchHandler(nil, 0)
	if h.defaultLimit != 50 {
		t.Errorf("expected default limit 50, got %d", h.defaultLimit)
	}
	h2 := NewSearchHandler(nil, 25)
	if h2.defaultLimit != 25 {
		t.Errorf("expected configured limit 25, got %d", h2.defaultLimit)
	}
}

func TestRetrievalModeConstants_MatchHandlerValidation(t *testing.T) {
	for _, m := range []retrieval.Mode{retrieval.ModeFulltext, retrieval.ModeSemantic, retrieval.ModeHybrid} {
		switch m {
		case retrieval.ModeFulltext, retrieval.ModeSemantic, retrieval.ModeHybrid:
		default:
			t.Errorf("unexpected mode %q not recognized by handler validation", m)
		}
	}
}
