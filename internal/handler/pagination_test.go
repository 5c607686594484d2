package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePagination_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	p := parsePagination(req)
	if p.Page != 1 || p.Limit != defaultPageLimit {
		t.Errorf("got page=%d limit=%d, want page=1 limit=%d", p.Page, p.Limit, defaultPageLimit)
	}
	if p.offset() != 0 {
		t.Errorf("expected offset 0 on page 1, got %d", p.offset())
	}
}

func TestParsePagination_ClampsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/documents?limit=500", nil)
	p := parsePagination(req)
	if p.Limit != maxPageLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxPageLimit, p.Limit)
	}
}

func TestParsePagination_NegativePageDefaultsToOne(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/documents?page=-3", nil)
	p := parsePagination(req)
	if p.Page != 1 {
		t.Errorf("expected negative page to default to 1, got %d", p.Page)
	}
}

func TestParsePagination_OffsetAdvancesByLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/documents?page=3&limit=10", nil)
	p := parsePagination(req)
	if p.offset() != 20 {
		t.Errorf("expected offset 20 for page 3 limit 10, got %d", p.offset())
	}
}
