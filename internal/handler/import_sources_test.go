package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestToImportSourceResponse_OmitsIMAPPassword(t *testing.T) {
	password := "super-secret"
	src := model.ImportSource{
		ID:           "s1",
		Name:         "work-mailbox",
		SourceType:   model.ImportSourceIMAP,
		Status:       model.ImportSourceActive,
		IMAPPassword: &password,
	}

	data, err := json.Marshal(toImportSourceResponse(src))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	if _, ok := decoded["imap_password"]; ok {
		t.Error("importSourceResponse must never serialize the IMAP password")
	}
	if decoded["source_type"] != "imap" {
		t.Errorf("source_type: got %v", decoded["source_type"])
	}
}

func TestCreateImportSource_UnknownSourceType(t *testing.T) {
	h := NewImportSourceHandler(nil)
	body, _ := json.Marshal(createImportSourceRequest{Name: "x", SourceType: "bogus"})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/import-sources", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCreateImportSource_DirectoryRequiresWatchPath(t *testing.T) {
	h := NewImportSourceHandler(nil)
	body, _ := json.Marshal(createImportSourceRequest{Name: "x", SourceType: "directory"})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/import-sources", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCreateImportSource_MissingName(t *testing.T) {
	h := NewImportSourceHandler(nil)
	body, _ := json.Marshal(createImportSourceRequest{Name: ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/import-sources", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}
