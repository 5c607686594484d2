// Package queue implements the Postgres-backed job queue (C3):
// at-least-once durable dispatch with JSON payloads and per-task
// wall-clock deadlines, using SELECT ... FOR UPDATE SKIP LOCKED so
// multiple worker processes can pull from the same table safely.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Task names the core dispatches.
const (
	TaskProcessDocument     = "process_document"
	TaskGenerateEmbeddings  = "generate_embeddings"
	TaskExtractMetadata     = "extract_metadata"
	TaskReprocessDocument   = "reprocess_document" // alias of TaskProcessDocument
)

const (
	// SoftDeadline is the advisory per-task wall limit: workers should
	// treat it as a cancellation signal and wind down gracefully.
	SoftDeadline = 25 * time.Minute
	// HardDeadline is the enforced per-task wall limit.
	HardDeadline = 30 * time.Minute
)

// Job is one row of the jobs table.
type Job struct {
	ID        string
	TaskName  string
	DocID     string
	Payload   json.RawMessage
	Status    string
	Attempts  int
	CreatedAt time.Time
	StartedAt *time.Time
}

// Queue is a Postgres-backed durable job queue.
type Queue struct {
	pool *pgxpool.Pool
}

// New builds a Queue over the given pool.
func New(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

// Enqueue inserts a new queued job and returns its id.
func (q *Queue) Enqueue(ctx context.Context, taskName, docID string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	id := uuid.NewString()
	_, err = q.pool.Exec(ctx, `
		INSERT INTO jobs (id, task_name, doc_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'queued', 0, now(), now())`,
		id, taskName, docID, raw,
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskName, err)
	}
	return id, nil
}

// ErrNoJob is returned by Dequeue when no queued job is available.
var ErrNoJob = errors.New("no job available")

// Dequeue atomically claims the oldest queued job, marking it running.
// Uses FOR UPDATE SKIP LOCKED so concurrent worker processes never claim
// the same row twice.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin dequeue tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var job Job
	err = tx.QueryRow(ctx, `
		SELECT id, task_name, doc_id, payload, status, attempts, created_at
		  FROM jobs
		 WHERE status = 'queued'
		 ORDER BY created_at
		 FOR UPDATE SKIP LOCKED
		 LIMIT 1`,
	).Scan(&job.ID, &job.TaskName, &job.DocID, &job.Payload, &job.Status, &job.Attempts, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("dequeue select: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs
		   SET status = 'running', attempts = attempts + 1, started_at = now(), updated_at = now()
		 WHERE id = $1`,
		job.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("dequeue claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit dequeue: %w", err)
	}

	job.Status = "running"
	job.Attempts++
	return &job, nil
}

// Complete marks a job succeeded.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE jobs SET status = 'succeeded', finished_at = now(), updated_at = now()
		 WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	return nil
}

// Fail marks a job failed with the given error message.
func (q *Queue) Fail(ctx context.Context, jobID, errMsg string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE jobs SET status = 'failed', error = $2, finished_at = now(), updated_at = now()
		 WHERE id = $1`, jobID, errMsg)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	return nil
}
