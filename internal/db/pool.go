// Package db provides database connection pooling and startup checks.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxRetries    = 10
	retryBaseWait = 1 * time.Second
	retryMaxWait  = 10 * time.Second
)

// requiredExtensions that must be installed in the database.
var requiredExtensions = []string{"uuid-ossp", "vector"}

// requiredTables that must exist for the document service to function.
var requiredTables = []string{
	"users",
	"documents",
	"document_chunks",
	"document_shares",
	"tags",
	"document_tags",
	"import_sources",
	"activity_logs",
	"jobs",
}

// Connect creates a pgx connection pool with retry logic.
// It retries up to maxRetries times with exponential backoff.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	wait := retryBaseWait

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				slog.Info("database connected", "attempt", attempt)
				return pool, nil
			} else {
				err = pingErr
				pool.Close()
			}
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, err)
		}

		slog.Warn("database connection failed, retrying",
			"attempt", attempt,
			"max_retries", maxRetries,
			"wait", wait.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during DB connect: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait = wait * 2
		if wait > retryMaxWait {
			wait = retryMaxWait
		}
	}

	return nil, fmt.Errorf("database connection failed: %w", err)
}

// CheckExtensions verifies that all required Postgres extensions are installed.
func CheckExtensions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ext := range requiredExtensions {
		var exists bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = $1)", ext,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check extension %q: %w", ext, err)
		}
		if !exists {
			return fmt.Errorf("required extension %q is not installed", ext)
		}
		slog.Debug("extension check passed", "extension", ext)
	}
	return nil
}

// CheckTables verifies that all required tables exist in the database.
func CheckTables(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range requiredTables {
		var exists bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1)", table,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check table %q: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("required table %q does not exist - run migrations first", table)
		}
		slog.Debug("table check passed", "table", table)
	}
	return nil
}

// CheckEmbeddingDimension verifies the stored document_chunks.embedding
// column dimension matches the configured dimension D. It refuses to
// report success on mismatch so the caller can disable embedding jobs
// without refusing the rest of startup (spec: ingestion and OCR stages
// must still work when only the embedding dimension disagrees).
func CheckEmbeddingDimension(ctx context.Context, pool *pgxpool.Pool, configured int) error {
	var typ string
	err := pool.QueryRow(ctx, `
		SELECT format_type(a.atttypid, a.atttypmod)
		  FROM pg_attribute a
		  JOIN pg_class c ON c.oid = a.attrelid
		 WHERE c.relname = 'document_chunks' AND a.attname = 'embedding'
	`).Scan(&typ)
	if err != nil {
		return fmt.Errorf("read document_chunks.embedding column type: %w", err)
	}

	stored := parseVectorDimension(typ)
	if stored == 0 {
		return fmt.Errorf("document_chunks.embedding has no fixed dimension (type %q)", typ)
	}
	if stored != configured {
		return fmt.Errorf("embedding dimension mismatch: configured D=%d but stored column is vector(%d)", configured, stored)
	}
	return nil
}

func parseVectorDimension(pgType string) int {
	var n int
	_, err := fmt.Sscanf(pgType, "vector(%d)", &n)
	if err != nil {
		return 0
	}
	return n
}

// StartupChecks runs all pre-flight checks (extensions + tables). The
// embedding dimension check is run separately by the caller since a
// mismatch there must not block the rest of startup.
func StartupChecks(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("running startup checks...")

	if err := CheckExtensions(ctx, pool); err != nil {
		return fmt.Errorf("extension check failed: %w", err)
	}
	slog.Info("all required extensions present")

	if err := CheckTables(ctx, pool); err != nil {
		return fmt.Errorf("table check failed: %w", err)
	}
	slog.Info("all required tables present")

	return nil
}
