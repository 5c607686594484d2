package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// ImportSourceRepo is the data-access layer for configured ingest
// sources (directory watchers and IMAP pollers).
type ImportSourceRepo struct {
	pool *pgxpool.Pool
}

// NewImportSourceRepo builds an ImportSourceRepo over pool.
func NewImportSourceRepo(pool *pgxpool.Pool) *ImportSourceRepo {
	return &ImportSourceRepo{pool: pool}
}

// ListActive returns all active sources of the given type, for the
// reconciliation loop's 60s re-scan.
func (r *ImportSourceRepo) ListActive(ctx context.Context, sourceType model.ImportSourceType) ([]model.ImportSource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, source_type, status, owner_id, last_run, last_error,
		       watch_path, move_after_import, move_to_path, delete_after_import,
		       imap_host, imap_port, imap_username, imap_password, imap_use_ssl,
		       imap_mailbox, imap_processed_folder, created_at, updated_at
		  FROM import_sources
		 WHERE source_type = $1 AND status = $2`,
		sourceType, model.ImportSourceActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active %s sources: %w", sourceType, err)
	}
	defer rows.Close()

	var out []model.ImportSource
	for rows.Next() {
		var s model.ImportSource
		if err := rows.Scan(
			&s.ID, &s.Name, &s.SourceType, &s.Status, &s.OwnerID, &s.LastRun, &s.LastError,
			&s.WatchPath, &s.MoveAfterImport, &s.MoveToPath, &s.DeleteAfterImport,
			&s.IMAPHost, &s.IMAPPort, &s.IMAPUsername, &s.IMAPPassword, &s.IMAPUseSSL,
			&s.IMAPMailbox, &s.IMAPProcessedFolder, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import source: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import sources: %w", err)
	}
	return out, nil
}

// List returns every configured import source, newest first.
func (r *ImportSourceRepo) List(ctx context.Context) ([]model.ImportSource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, source_type, status, owner_id, last_run, last_error,
		       watch_path, move_after_import, move_to_path, delete_after_import,
		       imap_host, imap_port, imap_username, imap_password, imap_use_ssl,
		       imap_mailbox, imap_processed_folder, created_at, updated_at
		  FROM import_sources
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list import sources: %w", err)
	}
	defer rows.Close()

	var out []model.ImportSource
	for rows.Next() {
		var s model.ImportSource
		if err := rows.Scan(
			&s.ID, &s.Name, &s.SourceType, &s.Status, &s.OwnerID, &s.LastRun, &s.LastError,
			&s.WatchPath, &s.MoveAfterImport, &s.MoveToPath, &s.DeleteAfterImport,
			&s.IMAPHost, &s.IMAPPort, &s.IMAPUsername, &s.IMAPPassword, &s.IMAPUseSSL,
			&s.IMAPMailbox, &s.IMAPProcessedFolder, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import source: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import sources: %w", err)
	}
	return out, nil
}

// Get fetches a single import source by id.
func (r *ImportSourceRepo) Get(ctx context.Context, id string) (model.ImportSource, error) {
	var s model.ImportSource
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, source_type, status, owner_id, last_run, last_error,
		       watch_path, move_after_import, move_to_path, delete_after_import,
		       imap_host, imap_port, imap_username, imap_password, imap_use_ssl,
		       imap_mailbox, imap_processed_folder, created_at, updated_at
		  FROM import_sources WHERE id = $1`, id,
	).Scan(
		&s.ID, &s.Name, &s.SourceType, &s.Status, &s.OwnerID, &s.LastRun, &s.LastError,
		&s.WatchPath, &s.MoveAfterImport, &s.MoveToPath, &s.DeleteAfterImport,
		&s.IMAPHost, &s.IMAPPort, &s.IMAPUsername, &s.IMAPPassword, &s.IMAPUseSSL,
		&s.IMAPMailbox, &s.IMAPProcessedFolder, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return model.ImportSource{}, fmt.Errorf("get import source %s: %w", id, err)
	}
	return s, nil
}

// Create inserts a new import source configuration and returns its id.
func (r *ImportSourceRepo) Create(ctx context.Context, s model.ImportSource) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO import_sources (
			id, name, source_type, status, owner_id,
			watch_path, move_after_import, move_to_path, delete_after_import,
			imap_host, imap_port, imap_username, imap_password, imap_use_ssl,
			imap_mailbox, imap_processed_folder, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16, now(), now())`,
		id, s.Name, s.SourceType, model.ImportSourceActive, s.OwnerID,
		s.WatchPath, s.MoveAfterImport, s.MoveToPath, s.DeleteAfterImport,
		s.IMAPHost, s.IMAPPort, s.IMAPUsername, s.IMAPPassword, s.IMAPUseSSL,
		s.IMAPMailbox, s.IMAPProcessedFolder,
	)
	if err != nil {
		return "", fmt.Errorf("create import source %q: %w", s.Name, err)
	}
	return id, nil
}

// UpdateStatus flips a source between active and paused (an admin pause,
// distinct from MarkError's automatic failure transition).
func (r *ImportSourceRepo) UpdateStatus(ctx context.Context, id string, status model.ImportSourceStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_sources SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status for source %s: %w", id, err)
	}
	return nil
}

// Delete removes an import source configuration.
func (r *ImportSourceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM import_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete import source %s: %w", id, err)
	}
	return nil
}

// MarkRun records a successful reconciliation pass and clears last_error.
func (r *ImportSourceRepo) MarkRun(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_sources SET last_run = now(), last_error = NULL, updated_at = now()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark run for source %s: %w", id, err)
	}
	return nil
}

// MarkError records a per-source failure and flips status to error.
func (r *ImportSourceRepo) MarkError(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_sources
		   SET status = $2, last_error = $3, last_run = now(), updated_at = now()
		 WHERE id = $1`, id, model.ImportSourceError, errMsg)
	if err != nil {
		return fmt.Errorf("mark error for source %s: %w", id, err)
	}
	return nil
}
