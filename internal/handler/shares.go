package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tedkulp/cartulary-go/internal/activity"
	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// ShareHandler serves document-share grant/revoke endpoints, guarded by
// superuser status or ownership of the target document.
type ShareHandler struct {
	docs   *db.DocumentRepo
	shares *db.ShareRepo
	log    *activity.Logger
}

// NewShareHandler builds a ShareHandler.
func NewShareHandler(docs *db.DocumentRepo, shares *db.ShareRepo, log *activity.Logger) *ShareHandler {
	return &ShareHandler{docs: docs, shares: shares, log: log}
}

type createShareRequest struct {
	SharedWithUserID string     `json:"shared_with_user_id"`
	PermissionLevel  string     `json:"permission_level"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

type shareResponse struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id"`
	SharedWithUserID string     `json:"shared_with_user_id"`
	SharedByUserID   *string    `json:"shared_by_user_id,omitempty"`
	PermissionLevel  string     `json:"permission_level"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toShareResponse(s model.DocumentShare) shareResponse {
	return shareResponse{
		ID:               s.ID,
		DocumentID:       s.DocumentID,
		SharedWithUserID: s.SharedWithUserID,
		SharedByUserID:   s.SharedByUserID,
		PermissionLevel:  string(s.PermissionLevel),
		ExpiresAt:        s.ExpiresAt,
		CreatedAt:        s.CreatedAt,
	}
}

// List handles GET /v1/documents/{id}/shares.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	user := currentUser(r)

	if !h.requireAdmin(w, r, ctx, user, docID) {
		return
	}

	shares, err := h.shares.ListForDocument(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to list shares", err))
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, toShareResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": out})
}

// Create handles POST /v1/documents/{id}/shares.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	user := currentUser(r)

	if !h.requireAdmin(w, r, ctx, user, docID) {
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppErr(w, apperr.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	if req.SharedWithUserID == "" {
		writeAppErr(w, apperr.InvalidInputf("shared_with_user_id is required"))
		return
	}

	level := model.PermissionLevel(req.PermissionLevel)
	switch level {
	case model.PermissionRead, model.PermissionWrite, model.PermissionAdmin:
	default:
		writeAppErr(w, apperr.InvalidInputf("permission_level must be one of read, write, admin"))
		return
	}

	shareID, err := h.shares.Create(ctx, docID, req.SharedWithUserID, user.ID, level, req.ExpiresAt)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to create share", err))
		return
	}

	if h.log != nil {
		if err := h.log.Log(ctx, user.ID, activity.ActionDocumentShare, "document", docID,
			"shared with "+req.SharedWithUserID, map[string]any{"permission_level": string(level)}, r.RemoteAddr, r.UserAgent()); err != nil {
			slog.Error("handler: activity log write failed", "action", activity.ActionDocumentShare, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": shareID})
}

// Revoke handles DELETE /v1/documents/{id}/shares/{shareID}.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	shareID := chi.URLParam(r, "shareID")
	user := currentUser(r)

	if !h.requireAdmin(w, r, ctx, user, docID) {
		return
	}

	if err := h.shares.Revoke(ctx, shareID); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to revoke share", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) requireAdmin(w http.ResponseWriter, r *http.Request, ctx context.Context, user model.User, docID string) bool {
	doc, err := h.docs.Get(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.NotFoundf("document %s not found", docID))
		return false
	}
	if user.IsSuperuser || doc.OwnerID == user.ID {
		return true
	}
	writeAppErr(w, apperr.PermissionDeniedf("you do not have admin access to document %s", docID))
	return false
}
