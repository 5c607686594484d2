package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// TagRepo is the data-access layer for tags and document_tags, beyond
// DocumentRepo's UpsertTag/LinkTag (which the pipeline's auto-tagging
// path uses); this repo serves the human-facing tag listing/removal
// endpoints.
type TagRepo struct {
	pool *pgxpool.Pool
}

// NewTagRepo builds a TagRepo over pool.
func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

// List returns every tag, alphabetically.
func (r *TagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, description, created_by, created_at
		  FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

// ForDocument returns the tags linked to docID.
func (r *TagRepo) ForDocument(ctx context.Context, docID string) ([]model.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.color, t.description, t.created_by, t.created_at
		  FROM tags t
		  JOIN document_tags dt ON dt.tag_id = t.id
		 WHERE dt.document_id = $1
		 ORDER BY t.name ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("list tags for document %s: %w", docID, err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags for document: %w", err)
	}
	return out, nil
}

// Unlink removes a manually-applied or suggested tag from a document.
func (r *TagRepo) Unlink(ctx context.Context, docID, tagID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document_tags WHERE document_id = $1 AND tag_id = $2`, docID, tagID)
	if err != nil {
		return fmt.Errorf("unlink tag %s from document %s: %w", tagID, docID, err)
	}
	return nil
}
