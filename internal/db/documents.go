package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// DocumentRepo is the direct SQL data-access layer for documents and
// their derived chunks, following the teacher's flat query-inline style
// (see handler/ingestion.go) rather than an ORM or generated layer.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepo builds a DocumentRepo over pool.
func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

// Insert creates a new Document row in StatusPending under a
// caller-chosen id (so it can match a blob store path already written
// under that id) and returns it.
func (r *DocumentRepo) Insert(ctx context.Context, id string, d model.Document) (string, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (
			id, owner_id, uploaded_by, title, original_filename, file_path,
			file_size, mime_type, checksum, is_public, processing_status,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now(), now())`,
		id, d.OwnerID, d.UploadedBy, d.Title, d.OriginalFilename, d.FilePath,
		d.FileSize, d.MimeType, d.Checksum, d.IsPublic, model.StatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// Get fetches one document by id.
func (r *DocumentRepo) Get(ctx context.Context, docID string) (model.Document, error) {
	var d model.Document
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, uploaded_by, title, original_filename, file_path,
		       file_size, mime_type, checksum, ocr_text, ocr_language, page_count,
		       extracted_title, extracted_date, extracted_correspondent,
		       extracted_document_type, extracted_summary, is_public,
		       processing_status, processing_error, created_at, updated_at
		  FROM documents WHERE id = $1`, docID,
	).Scan(
		&d.ID, &d.OwnerID, &d.UploadedBy, &d.Title, &d.OriginalFilename, &d.FilePath,
		&d.FileSize, &d.MimeType, &d.Checksum, &d.OCRText, &d.OCRLanguage, &d.PageCount,
		&d.ExtractedTitle, &d.ExtractedDate, &d.ExtractedCorrespondent,
		&d.ExtractedDocumentType, &d.ExtractedSummary, &d.IsPublic,
		&d.ProcessingStatus, &d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("get document %s: %w", docID, err)
	}
	return d, nil
}

// OCRText re-reads just the ocr_text column via a direct query, avoiding
// a stale in-memory copy of a field another stage may have just written.
func (r *DocumentRepo) OCRText(ctx context.Context, docID string) (*string, error) {
	var text *string
	err := r.pool.QueryRow(ctx, `SELECT ocr_text FROM documents WHERE id = $1`, docID).Scan(&text)
	if err != nil {
		return nil, fmt.Errorf("read ocr_text for %s: %w", docID, err)
	}
	return text, nil
}

// SetStatus updates processing_status and clears or sets processing_error.
func (r *DocumentRepo) SetStatus(ctx context.Context, docID, status string, processingErr *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET processing_status = $2, processing_error = $3, updated_at = now()
		 WHERE id = $1`, docID, status, processingErr)
	if err != nil {
		return fmt.Errorf("set status for %s: %w", docID, err)
	}
	return nil
}

// SetOCRResult records extraction output and transitions to ocr_complete.
func (r *DocumentRepo) SetOCRResult(ctx context.Context, docID, text, language string, pageCount *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents
		   SET ocr_text = $2, ocr_language = $3, page_count = COALESCE($4, page_count),
		       processing_status = $5, processing_error = NULL, updated_at = now()
		 WHERE id = $1`, docID, text, language, pageCount, model.StatusOCRComplete)
	if err != nil {
		return fmt.Errorf("set ocr result for %s: %w", docID, err)
	}
	return nil
}

// UpdatePageCount sets page_count on its own; the orchestrator calls it
// when extraction produced no text, since SetOCRResult is not called then.
func (r *DocumentRepo) UpdatePageCount(ctx context.Context, docID string, pageCount int) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET page_count = $2, updated_at = now() WHERE id = $1`, docID, pageCount)
	if err != nil {
		return fmt.Errorf("update page count for %s: %w", docID, err)
	}
	return nil
}

// ReplaceChunks deletes all existing chunk rows for docID and inserts
// the new set in order, in one transaction, then marks the document
// embedding_complete. This is the delete-then-insert the orchestrator's
// idempotence contract relies on for safe re-runs.
func (r *DocumentRepo) ReplaceChunks(ctx context.Context, docID string, texts []string, vectors [][]float32, embeddingModel string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace chunks tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("delete existing chunks for %s: %w", docID, err)
	}

	for i, text := range texts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, embedding, embedding_model, created_at)
			VALUES ($1,$2,$3,$4,$5,$6, now())`,
			uuid.NewString(), docID, i, text, pgvector.NewVector(vectors[i]), embeddingModel,
		); err != nil {
			return fmt.Errorf("insert chunk %d for %s: %w", i, docID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE documents SET processing_status = $2, processing_error = NULL, updated_at = now()
		 WHERE id = $1`, docID, model.StatusEmbeddingComplete); err != nil {
		return fmt.Errorf("set embedding_complete for %s: %w", docID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace chunks for %s: %w", docID, err)
	}
	return nil
}

// ApplyExtractedMetadata performs the conditional metadata upsert:
// extracted_title only fills in when the current title still equals
// the original filename (never clobbering a user edit), and the other
// fields update whenever the provider returned a non-empty, non-
// "Unknown" value.
func (r *DocumentRepo) ApplyExtractedMetadata(ctx context.Context, docID string, meta model.ExtractedMetadata) error {
	const unknown = "Unknown"

	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET
			title = CASE WHEN title = original_filename AND $2 <> '' THEN $2 ELSE title END,
			extracted_title = CASE WHEN title = original_filename AND $2 <> '' THEN $2 ELSE extracted_title END,
			extracted_correspondent = CASE WHEN $3 NOT IN ('', $5) THEN $3 ELSE extracted_correspondent END,
			extracted_date = CASE WHEN $4 NOT IN ('', $5) THEN $4 ELSE extracted_date END,
			processing_status = $6,
			processing_error = NULL,
			updated_at = now()
		WHERE id = $1`,
		docID, meta.Title, meta.Correspondent, meta.DocumentDate, unknown, model.StatusLLMComplete,
	)
	if err != nil {
		return fmt.Errorf("apply extracted title/correspondent/date for %s: %w", docID, err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE documents SET
			extracted_document_type = CASE WHEN $2 NOT IN ('', $4) THEN $2 ELSE extracted_document_type END,
			extracted_summary = CASE WHEN $3 NOT IN ('', $4) THEN $3 ELSE extracted_summary END,
			updated_at = now()
		WHERE id = $1`,
		docID, meta.DocumentType, meta.Summary, unknown,
	)
	if err != nil {
		return fmt.Errorf("apply extracted document_type/summary for %s: %w", docID, err)
	}
	return nil
}

// UpsertTag inserts a tag by (lowercased, trimmed) name if absent and
// returns its id.
func (r *DocumentRepo) UpsertTag(ctx context.Context, name string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (id, name, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, uuid.NewString(), name,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert tag %q: %w", name, err)
	}
	return id, nil
}

// LinkTag inserts a document_tags row if one doesn't already exist. A
// failure here is isolated by the caller per spec: it must not abort
// the rest of the tag list.
func (r *DocumentRepo) LinkTag(ctx context.Context, docID, tagID string, suggestedByLLM bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document_tags (document_id, tag_id, is_auto_tagged, tagged_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document_id, tag_id) DO NOTHING`, docID, tagID, suggestedByLLM)
	if err != nil {
		return fmt.Errorf("link tag %s to document %s: %w", tagID, docID, err)
	}
	return nil
}

// FindByChecksum looks up an existing document owned by ownerID with the
// given checksum, for ingest-source duplicate detection.
func (r *DocumentRepo) FindByChecksum(ctx context.Context, ownerID, checksum string) (docID string, found bool, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT id FROM documents WHERE owner_id = $1 AND checksum = $2 LIMIT 1`,
		ownerID, checksum,
	).Scan(&docID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find document by checksum: %w", err)
	}
	return docID, true, nil
}

// Delete removes a document row; document_chunks and document_tags rows
// cascade per the schema's foreign keys.
func (r *DocumentRepo) Delete(ctx context.Context, docID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// SetPublic flips is_public for the sharing endpoints.
func (r *DocumentRepo) SetPublic(ctx context.Context, docID string, public bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET is_public = $2, updated_at = now() WHERE id = $1`, docID, public)
	if err != nil {
		return fmt.Errorf("set is_public for %s: %w", docID, err)
	}
	return nil
}

// ErrNotFound wraps pgx.ErrNoRows for callers that want to test with errors.Is.
var ErrNotFound = pgx.ErrNoRows
