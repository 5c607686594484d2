package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunCrashGuard marks stale jobs as failed on startup. A job queued but
// never picked up within queuedTTLMinutes, or running with no heartbeat
// within hardDeadlineMinutes, means the worker that owned it died.
//
// Three separate statements:
// 1. Stale queued jobs (created_at older than queuedTTLMinutes) — never dispatched.
// 2. Stale running jobs (updated_at older than hardDeadlineMinutes) — worker crashed mid-task.
// 3. Documents left in "processing" with no queued or running job — marked failed.
func RunCrashGuard(ctx context.Context, pool *pgxpool.Pool, queuedTTLMinutes, hardDeadlineMinutes int) error {
	tag, err := pool.Exec(ctx,
		`UPDATE jobs
		 SET status = 'failed',
		     error = 'interrupted - job was never picked up (service restarted)',
		     finished_at = now(),
		     updated_at = now()
		 WHERE status = 'queued'
		   AND created_at < now() - make_interval(mins => $1)`,
		queuedTTLMinutes,
	)
	if err != nil {
		return fmt.Errorf("crash guard (queued): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked stale queued jobs as failed",
			"count", tag.RowsAffected(),
			"ttl_minutes", queuedTTLMinutes,
		)
	}

	tag, err = pool.Exec(ctx,
		`UPDATE jobs
		 SET status = 'failed',
		     error = 'interrupted - worker stopped responding (hard deadline exceeded)',
		     finished_at = now(),
		     updated_at = now()
		 WHERE status = 'running'
		   AND updated_at < now() - make_interval(mins => $1)`,
		hardDeadlineMinutes,
	)
	if err != nil {
		return fmt.Errorf("crash guard (running): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked stale running jobs as failed",
			"count", tag.RowsAffected(),
			"hard_deadline_minutes", hardDeadlineMinutes,
		)
	}

	// Any document left in "processing" with no corresponding live job is
	// a casualty of the same crash; surface it rather than leaving the
	// document stuck with no explanation.
	tag, err = pool.Exec(ctx,
		`UPDATE documents
		 SET processing_status = 'failed',
		     processing_error = 'interrupted by service restart',
		     updated_at = now()
		 WHERE processing_status = 'processing'
		   AND NOT EXISTS (
		       SELECT 1 FROM jobs j
		        WHERE j.doc_id = documents.id AND j.status IN ('queued', 'running')
		   )`,
	)
	if err != nil {
		return fmt.Errorf("crash guard (orphaned documents): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked orphaned in-flight documents as failed", "count", tag.RowsAffected())
	}

	slog.Info("crash guard complete")
	return nil
}
