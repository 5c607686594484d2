// Package ingest implements the directory-watcher and IMAP-poller
// ingest sources (C9): both funnel into the same duplicate-checked
// blob-store-and-submit path the HTTP upload handler also uses.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/blob"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/eventbus"
	"github.com/tedkulp/cartulary-go/internal/extract"
	"github.com/tedkulp/cartulary-go/internal/model"
	"github.com/tedkulp/cartulary-go/internal/pipeline"
)

// Submitter is the subset of the pipeline orchestrator an ingest source
// needs: enqueue the extraction stage for a newly created document.
type Submitter interface {
	Submit(ctx context.Context, docID string) error
}

var _ Submitter = (*pipeline.Orchestrator)(nil)

// Deps bundles the shared collaborators both ingest sources call into.
type Deps struct {
	Docs    *db.DocumentRepo
	Blob    *blob.Store
	Orch    Submitter
	Bus     *eventbus.Bus
}

// ingestResult reports whether a file was a fresh ingest or a duplicate,
// so callers can still apply the configured post-import action.
type ingestResult struct {
	docID       string
	wasDuplicate bool
}

// ingestFile copies r into the blob store (computing its checksum),
// checks (ownerID, checksum) for a duplicate and, if one exists, deletes
// the new blob; otherwise it creates the Document, submits it to the
// pipeline, and publishes document.created.
// An empty title derives from originalFilename, minus its extension.
// uploadedBy is nil for ingestion-source documents (directory watcher,
// IMAP poller) and the acting user's id for a direct HTTP upload.
func ingestFile(ctx context.Context, deps Deps, ownerID string, uploadedBy *string, originalFilename, title string, r io.Reader) (ingestResult, error) {
	if !extract.IsDocumentExtension(filepath.Ext(originalFilename)) {
		return ingestResult{}, apperr.InvalidInputf("unsupported extension for %q", originalFilename)
	}

	docID := uuid.NewString()
	put, err := deps.Blob.Put(docID, originalFilename, r)
	if err != nil {
		return ingestResult{}, fmt.Errorf("store %q: %w", originalFilename, err)
	}

	existingID, dup, err := deps.Docs.FindByChecksum(ctx, ownerID, put.Checksum)
	if err != nil {
		return ingestResult{}, fmt.Errorf("check duplicate for %q: %w", originalFilename, err)
	}
	if dup {
		if delErr := deps.Blob.Delete(put.RelativePath); delErr != nil {
			slog.Error("ingest: failed to clean up duplicate blob", "path", put.RelativePath, "error", delErr)
		}
		return ingestResult{docID: existingID, wasDuplicate: true}, nil
	}

	if title == "" {
		title = strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename))
	}

	if _, err := deps.Docs.Insert(ctx, docID, model.Document{
		OwnerID:          ownerID,
		UploadedBy:       uploadedBy,
		Title:            title,
		OriginalFilename: originalFilename,
		FilePath:         put.RelativePath,
		FileSize:         put.Size,
		MimeType:         put.MimeType,
		Checksum:         put.Checksum,
	}); err != nil {
		return ingestResult{}, fmt.Errorf("create document for %q: %w", originalFilename, err)
	}

	if err := deps.Orch.Submit(ctx, docID); err != nil {
		return ingestResult{}, fmt.Errorf("submit %q: %w", originalFilename, err)
	}
	if err := deps.Bus.DocumentCreated(ctx, docID, ownerID); err != nil {
		slog.Error("ingest: publish document.created failed", "doc_id", docID, "error", err)
	}

	return ingestResult{docID: docID}, nil
}

// UploadResult is ingestFile's outcome, exported for the HTTP upload
// handler.
type UploadResult struct {
	DocumentID   string
	WasDuplicate bool
}

// Upload is the entry point the HTTP upload handler calls: same
// checksum-dedup-then-submit path the directory watcher and IMAP poller
// use, with a caller-supplied title override. uploadedBy records the
// authenticated user performing the upload, distinguishing it from an
// ingestion-source document (nil).
func Upload(ctx context.Context, deps Deps, ownerID string, uploadedBy *string, originalFilename, title string, r io.Reader) (UploadResult, error) {
	res, err := ingestFile(ctx, deps, ownerID, uploadedBy, originalFilename, title, r)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{DocumentID: res.docID, WasDuplicate: res.wasDuplicate}, nil
}
