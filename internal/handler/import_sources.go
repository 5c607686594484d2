package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// ImportSourceHandler serves the admin-only CRUD surface over configured
// ingest sources (C9); mounted behind RequireSuperuser.
type ImportSourceHandler struct {
	sources *db.ImportSourceRepo
}

// NewImportSourceHandler builds an ImportSourceHandler.
func NewImportSourceHandler(sources *db.ImportSourceRepo) *ImportSourceHandler {
	return &ImportSourceHandler{sources: sources}
}

type importSourceResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	SourceType        string     `json:"source_type"`
	Status            string     `json:"status"`
	OwnerID           string     `json:"owner_id"`
	LastRun           *time.Time `json:"last_run,omitempty"`
	LastError         *string    `json:"last_error,omitempty"`
	WatchPath         *string    `json:"watch_path,omitempty"`
	MoveAfterImport   bool       `json:"move_after_import"`
	MoveToPath        *string    `json:"move_to_path,omitempty"`
	DeleteAfterImport bool       `json:"delete_after_import"`
	IMAPHost          *string    `json:"imap_host,omitempty"`
	IMAPPort          *int       `json:"imap_port,omitempty"`
	IMAPUsername      *string    `json:"imap_username,omitempty"`
	IMAPUseSSL        bool       `json:"imap_use_ssl"`
	IMAPMailbox       *string    `json:"imap_mailbox,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// toImportSourceResponse deliberately omits IMAPPassword and
// IMAPProcessedFolder's raw internal bookkeeping from the wire shape.
func toImportSourceResponse(s model.ImportSource) importSourceResponse {
	return importSourceResponse{
		ID:                s.ID,
		Name:              s.Name,
		SourceType:        string(s.SourceType),
		Status:            string(s.Status),
		OwnerID:           s.OwnerID,
		LastRun:           s.LastRun,
		LastError:         s.LastError,
		WatchPath:         s.WatchPath,
		MoveAfterImport:   s.MoveAfterImport,
		MoveToPath:        s.MoveToPath,
		DeleteAfterImport: s.DeleteAfterImport,
		IMAPHost:          s.IMAPHost,
		IMAPPort:          s.IMAPPort,
		IMAPUsername:      s.IMAPUsername,
		IMAPUseSSL:        s.IMAPUseSSL,
		IMAPMailbox:       s.IMAPMailbox,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// List handles GET /v1/admin/import-sources.
func (h *ImportSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context())
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to list import sources", err))
		return
	}
	out := make([]importSourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, toImportSourceResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"import_sources": out})
}

// Get handles GET /v1/admin/import-sources/{id}.
func (h *ImportSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppErr(w, apperr.NotFoundf("import source %s not found", chi.URLParam(r, "id")))
		return
	}
	writeJSON(w, http.StatusOK, toImportSourceResponse(s))
}

type createImportSourceRequest struct {
	Name              string  `json:"name"`
	SourceType        string  `json:"source_type"`
	OwnerID           string  `json:"owner_id"`
	WatchPath         *string `json:"watch_path,omitempty"`
	MoveAfterImport   bool    `json:"move_after_import"`
	MoveToPath        *string `json:"move_to_path,omitempty"`
	DeleteAfterImport bool    `json:"delete_after_import"`
	IMAPHost          *string `json:"imap_host,omitempty"`
	IMAPPort          *int    `json:"imap_port,omitempty"`
	IMAPUsername      *string `json:"imap_username,omitempty"`
	IMAPPassword      *string `json:"imap_password,omitempty"`
	IMAPUseSSL        bool    `json:"imap_use_ssl"`
	IMAPMailbox       *string `json:"imap_mailbox,omitempty"`
	IMAPProcessedFolder *string `json:"imap_processed_folder,omitempty"`
}

// Create handles POST /v1/admin/import-sources.
func (h *ImportSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createImportSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppErr(w, apperr.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	if req.Name == "" {
		writeAppErr(w, apperr.InvalidInputf("name is required"))
		return
	}

	sourceType := model.ImportSourceType(req.SourceType)
	switch sourceType {
	case model.ImportSourceDirectory:
		if req.WatchPath == nil || *req.WatchPath == "" {
			writeAppErr(w, apperr.InvalidInputf("watch_path is required for a directory source"))
			return
		}
	case model.ImportSourceIMAP:
		if req.IMAPHost == nil || req.IMAPUsername == nil || req.IMAPPassword == nil {
			writeAppErr(w, apperr.InvalidInputf("imap_host, imap_username, and imap_password are required for an imap source"))
			return
		}
	default:
		writeAppErr(w, apperr.InvalidInputf("source_type must be one of directory, imap"))
		return
	}

	id, err := h.sources.Create(r.Context(), model.ImportSource{
		Name:                req.Name,
		SourceType:          sourceType,
		OwnerID:             req.OwnerID,
		WatchPath:           req.WatchPath,
		MoveAfterImport:     req.MoveAfterImport,
		MoveToPath:          req.MoveToPath,
		DeleteAfterImport:   req.DeleteAfterImport,
		IMAPHost:            req.IMAPHost,
		IMAPPort:            req.IMAPPort,
		IMAPUsername:        req.IMAPUsername,
		IMAPPassword:        req.IMAPPassword,
		IMAPUseSSL:          req.IMAPUseSSL,
		IMAPMailbox:         req.IMAPMailbox,
		IMAPProcessedFolder: req.IMAPProcessedFolder,
	})
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to create import source", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type updateImportSourceStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/admin/import-sources/{id}, pausing or
// resuming a source (distinct from the automatic error transition the
// reconciliation loop applies).
func (h *ImportSourceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateImportSourceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppErr(w, apperr.InvalidInputf("invalid JSON body: %v", err))
		return
	}

	status := model.ImportSourceStatus(req.Status)
	switch status {
	case model.ImportSourceActive, model.ImportSourcePaused:
	default:
		writeAppErr(w, apperr.InvalidInputf("status must be one of active, paused"))
		return
	}

	if err := h.sources.UpdateStatus(r.Context(), id, status); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to update import source status", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

// Delete handles DELETE /v1/admin/import-sources/{id}.
func (h *ImportSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to delete import source", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
