package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// ShareRepo is the data-access layer for document_shares, the grant
// table the access predicate (C12) consults beyond ownership/public.
type ShareRepo struct {
	pool *pgxpool.Pool
}

// NewShareRepo builds a ShareRepo over pool.
func NewShareRepo(pool *pgxpool.Pool) *ShareRepo {
	return &ShareRepo{pool: pool}
}

// ListForDocument returns all shares (including expired ones; callers
// filter via DocumentShare.Active) recorded against docID.
func (r *ShareRepo) ListForDocument(ctx context.Context, docID string) ([]model.DocumentShare, error) {
	return r.list(ctx, `WHERE document_id = $1`, docID)
}

// ListForUser returns all shares granted to userID, across documents —
// what the access predicate needs to evaluate a single document check.
func (r *ShareRepo) ListForUser(ctx context.Context, userID string) ([]model.DocumentShare, error) {
	return r.list(ctx, `WHERE shared_with_user_id = $1`, userID)
}

func (r *ShareRepo) list(ctx context.Context, where string, arg string) ([]model.DocumentShare, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, document_id, shared_with_user_id, shared_by_user_id,
		       permission_level, expires_at, created_at
		  FROM document_shares %s`, where), arg)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentShare
	for rows.Next() {
		var s model.DocumentShare
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SharedWithUserID, &s.SharedByUserID,
			&s.PermissionLevel, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return out, nil
}

// Create grants sharedWithUserID the given level on docID.
func (r *ShareRepo) Create(ctx context.Context, docID, sharedWithUserID, sharedByUserID string, level model.PermissionLevel, expiresAt *time.Time) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document_shares (id, document_id, shared_with_user_id, shared_by_user_id, permission_level, expires_at, created_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6, now())`,
		id, docID, sharedWithUserID, sharedByUserID, level, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("create share for document %s: %w", docID, err)
	}
	return id, nil
}

// Revoke deletes a share by id.
func (r *ShareRepo) Revoke(ctx context.Context, shareID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document_shares WHERE id = $1`, shareID)
	if err != nil {
		return fmt.Errorf("revoke share %s: %w", shareID, err)
	}
	return nil
}
