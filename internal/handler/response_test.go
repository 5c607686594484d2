package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/apperr"
)

func TestWriteAppErr_MapsKnownKindToStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	writeAppErr(rr, apperr.NotFoundf("document %s not found", "doc-1"))

	if rr.Code != 404 {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "not_found" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestWriteAppErr_DuplicateCarriesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeAppErr(rr, apperr.Duplicatef("existing-id", "already ingested"))

	if rr.Code != 409 {
		t.Errorf("expected 409, got %d", rr.Code)
	}
	var body map[string]any
	json.NewDecoder(rr.Body).Decode(&body)
	detail, ok := body["detail"].(map[string]any)
	if !ok {
		t.Fatalf("expected detail object, got %v", body["detail"])
	}
	if detail["document_id"] != "existing-id" {
		t.Errorf("document_id: got %v", detail["document_id"])
	}
}

func TestWriteAppErr_UnknownErrorDefaultsTo500(t *testing.T) {
	rr := httptest.NewRecorder()
	writeAppErr(rr, errors.New("boom"))

	if rr.Code != 500 {
		t.Errorf("expected 500 for an unclassified error, got %d", rr.Code)
	}
	var body errorResponse
	json.NewDecoder(rr.Body).Decode(&body)
	if body.Error != "internal" {
		t.Errorf("error: got %q", body.Error)
	}
}
