package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tedkulp/cartulary-go/internal/access"
	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// TagHandler serves tag listing and removal, the human-facing side of
// the pipeline's auto-tagging (C7).
type TagHandler struct {
	tags   *db.TagRepo
	docs   *db.DocumentRepo
	shares *db.ShareRepo
}

// NewTagHandler builds a TagHandler.
func NewTagHandler(tags *db.TagRepo, docs *db.DocumentRepo, shares *db.ShareRepo) *TagHandler {
	return &TagHandler{tags: tags, docs: docs, shares: shares}
}

type tagResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

func toTagResponse(t model.Tag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Description: t.Description}
}

// List handles GET /v1/tags — every tag in the vocabulary.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to list tags", err))
		return
	}
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": out})
}

// ForDocument handles GET /v1/documents/{id}/tags.
func (h *TagHandler) ForDocument(w http.ResponseWriter, r *http.Request) {
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

	tags, err := h.tags.ForDocument(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to list tags for document", err))
		return
	}
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": out})
}

// Unlink handles DELETE /v1/documents/{id}/tags/{tagID}.
func (h *TagHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")
	tagID := chi.URLParam(r, "tagID")
	user := currentUser(r)

	doc, err := h.docs.Get(ctx, docID)
	if err != nil {
		writeAppErr(w, apperr.NotFoundf("document %s not found", docID))
		return
	}
	if !h.canAccess(ctx, user, doc, model.PermissionWrite) {
		writeAppErr(w, apperr.PermissionDeniedf("you do not have write access to document %s", docID))
		return
	}

	if err := h.tags.Unlink(ctx, docID, tagID); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to unlink tag", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canAccess mirrors DocumentHandler.canAccess: short-circuit on
// superuser/owner/public-read before paying for a shares lookup.
func (h *TagHandler) canAccess(ctx context.Context, user model.User, doc model.Document, level model.PermissionLevel) bool {
	if user.IsSuperuser || doc.OwnerID == user.ID || (doc.IsPublic && level == model.PermissionRead) {
		return access.CanAccess(user, doc, level, nil, time.Now())
	}
	shares, err := h.shares.ListForDocument(ctx, doc.ID)
	if err != nil {
		return false
	}
	return access.CanAccess(user, doc, level, shares, time.Now())
}
