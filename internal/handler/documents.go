package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tedkulp/cartulary-go/internal/access"
	"github.com/tedkulp/cartulary-go/internal/activity"
	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/ingest"
	"github.com/tedkulp/cartulary-go/internal/model"
	"github.com/tedkulp/cartulary-go/internal/retrieval"
)

// DocumentHandler serves the document CRUD surface (upload, get, list,
// delete) on top of the ingest path, the access predicate, and the
// retrieval engine's accessible-document listing.
type DocumentHandler struct {
	docs           *db.DocumentRepo
	shares         *db.ShareRepo
	retrieval      *retrieval.Engine
	ingestDeps     ingest.Deps
	log            *activity.Logger
	maxUploadBytes int64
}

// NewDocumentHandler builds a DocumentHandler.
func NewDocumentHandler(docs *db.DocumentRepo, shares *db.ShareRepo, retrievalEngine *retrieval.Engine, ingestDeps ingest.Deps, log *activity.Logger, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		docs:           docs,
		shares:         shares,
		retrieval:      retrievalEngine,
		ingestDeps:     ingestDeps,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
}

// documentResponse is the JSON shape returned for a document — a
// deliberate subset of model.Document, never the raw domain struct, so
// internal bookkeeping fields never leak over the wire.
type documentResponse struct {
	ID                     string    `json:"id"`
	OwnerID                string    `json:"owner_id"`
	Title                  string    `json:"title"`
	OriginalFilename       string    `json:"original_filename"`
	FileSize               int64     `json:"file_size"`
	MimeType               string    `json:"mime_type"`
	Checksum               string    `json:"checksum"`
	OCRLanguage            *string   `json:"ocr_language,omitempty"`
	PageCount              *int      `json:"page_count,omitempty"`
	ExtractedTitle         *string   `json:"extracted_title,omitempty"`
	ExtractedDate          *string   `json:"extracted_date,omitempty"`
	ExtractedCorrespondent *string   `json:"extracted_correspondent,omitempty"`
	ExtractedDocumentType  *string   `json:"extracted_document_type,omitempty"`
	ExtractedSummary       *string   `json:"extracted_summary,omitempty"`
	IsPublic               bool      `json:"is_public"`
	ProcessingStatus       string    `json:"processing_status"`
	ProcessingError        *string   `json:"processing_error,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toDocumentResponse(d model.Document) documentResponse {
	return documentResponse{
		ID:                     d.ID,
		OwnerID:                d.OwnerID,
		Title:                  d.Title,
		OriginalFilename:       d.OriginalFilename,
		FileSize:               d.FileSize,
		MimeType:               d.MimeType,
		Checksum:               d.Checksum,
		OCRLanguage:            d.OCRLanguage,
		PageCount:              d.PageCount,
		ExtractedTitle:         d.ExtractedTitle,
		ExtractedDate:          d.ExtractedDate,
		ExtractedCorrespondent: d.ExtractedCorrespondent,
		ExtractedDocumentType:  d.ExtractedDocumentType,
		ExtractedSummary:       d.ExtractedSummary,
		IsPublic:               d.IsPublic,
		ProcessingStatus:       d.ProcessingStatus,
		ProcessingError:        d.ProcessingError,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// documentListResponse is the paginated envelope for List.
type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

// Upload handles POST /v1/documents (multipart/form-data, field "file",
// optional "title"), the HTTP entry point into the same checksum-dedup
// ingest path the directory watcher and IMAP poller use.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	title := r.FormValue("title")

	result, err := ingest.Upload(ctx, h.ingestDeps, user.ID, &user.ID, header.Filename, title, file)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	if result.WasDuplicate {
		writeAppErr(w, apperr.Duplicatef(result.DocumentID, "document with this content already exists"))
		return
	}

	h.logActivity(ctx, user.ID, activity.ActionDocumentUpload, result.DocumentID, "uploaded "+header.Filename, r)

	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": result.DocumentID, "status": "pending"})
}

// Get handles GET /v1/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	user := currentUser(r)

	doc, err := h.docs.Get(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.NotFoundf("document %s not found", docID))
		return
	}

	if !h.canAccess(ctx, user, doc, model.PermissionRead) {
		writeAppErr(w, apperr.PermissionDeniedf("you do not have access to document %s", docID))
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// List handles GET /v1/documents?page=&limit=&search= — the access-
// predicate-filtered listing spec.md's Open Question resolves in favor
// of (superusers see everything; everyone else sees owned, public, and
// shared documents), reusing the retrieval engine's fulltextWhere so
// pagination and counts match can_access exactly.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	pg := parsePagination(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	total, err := h.retrieval.Count(ctx, search, user)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to count documents", err))
		return
	}

	results, err := h.retrieval.List(ctx, search, user, pg.offset(), pg.Limit)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to list documents", err))
		return
	}

	docs := make([]documentResponse, 0, len(results))
	for _, res := range results {
		docs = append(docs, toDocumentResponse(res.Document))
	}

	writeJSON(w, http.StatusOK, documentListResponse{Documents: docs, Total: total, Page: pg.Page, Limit: pg.Limit})
}

// Delete handles DELETE /v1/documents/{id}, requiring admin-level access
// (owner or an admin share).
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	user := currentUser(r)

	doc, err := h.docs.Get(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.NotFoundf("document %s not found", docID))
		return
	}

	if !h.canAccess(ctx, user, doc, model.PermissionAdmin) {
		writeAppErr(w, apperr.PermissionDeniedf("you do not have admin access to document %s", docID))
		return
	}

	if err := h.docs.Delete(ctx, docID); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to delete document", err))
		return
	}
	if err := h.ingestDeps.Blob.Delete(doc.FilePath); err != nil {
		slog.Error("handler: failed to delete blob after document delete", "doc_id", docID, "error", err)
	}
	if err := h.ingestDeps.Bus.DocumentDeleted(ctx, docID, user.ID); err != nil {
		slog.Error("handler: publish document.deleted failed", "doc_id", docID, "error", err)
	}

	h.logActivity(ctx, user.ID, activity.ActionDocumentDelete, docID, "deleted document", r)

	w.WriteHeader(http.StatusNoContent)
}

// canAccess evaluates the access predicate for a single document,
// fetching its shares only when ownership/public/superuser don't
// already settle the question.
func (h *DocumentHandler) canAccess(ctx context.Context, user model.User, doc model.Document, level model.PermissionLevel) bool {
	if user.IsSuperuser || doc.OwnerID == user.ID || (doc.IsPublic && level == model.PermissionRead) {
		return access.CanAccess(user, doc, level, nil, time.Now())
	}
	shares, err := h.shares.ListForDocument(ctx, doc.ID)
	if err != nil {
		return false
	}
	return access.CanAccess(user, doc, level, shares, time.Now())
}

func (h *DocumentHandler) logActivity(ctx context.Context, userID, action, docID, description string, r *http.Request) {
	if h.log == nil {
		return
	}
	if err := h.log.Log(ctx, userID, action, "document", docID, description, nil, r.RemoteAddr, r.UserAgent()); err != nil {
		slog.Error("handler: activity log write failed", "action", action, "error", err)
	}
}
