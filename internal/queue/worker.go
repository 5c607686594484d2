package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Handler processes one job's payload. Returning an error marks the job
// failed; the context is cancelled at the soft deadline, and the pool
// abandons the run at the hard deadline.
type Handler func(ctx context.Context, job *Job) error

// Pool runs a fixed number of worker goroutines polling the queue.
type Pool struct {
	queue        *Queue
	handlers     map[string]Handler
	pollInterval time.Duration
}

// NewPool builds a worker Pool dispatching to the given task handlers.
func NewPool(q *Queue, handlers map[string]Handler) *Pool {
	return &Pool{queue: q, handlers: handlers, pollInterval: time.Second}
}

// Run starts n worker goroutines and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context, n int) {
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(workerID int) {
			p.loop(ctx, workerID)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOne(ctx, workerID)
		}
	}
}

func (p *Pool) runOne(ctx context.Context, workerID int) {
	job, err := p.queue.Dequeue(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoJob) {
			slog.Error("queue: dequeue failed", "worker", workerID, "error", err)
		}
		return
	}

	handler, ok := p.handlers[job.TaskName]
	if !ok {
		slog.Error("queue: no handler registered", "task", job.TaskName, "job_id", job.ID)
		_ = p.queue.Fail(ctx, job.ID, "no handler registered for task "+job.TaskName)
		return
	}

	// taskCtx is cancelled at SoftDeadline so a well-behaved handler can
	// observe ctx.Done() and wind down; the run itself is only force-
	// abandoned at HardDeadline below.
	taskCtx, cancel := context.WithTimeout(ctx, SoftDeadline)
	defer cancel()

	start := time.Now()
	result := make(chan error, 1)
	go func() {
		result <- handler(taskCtx, job)
	}()

	var handlerErr error
	var timedOut bool
	select {
	case handlerErr = <-result:
	case <-time.After(HardDeadline):
		timedOut = true
	}
	elapsed := time.Since(start)

	if timedOut {
		err := errors.New("task exceeded hard deadline")
		slog.Error("queue: task abandoned at hard deadline", "task", job.TaskName, "job_id", job.ID, "doc_id", job.DocID, "elapsed", elapsed)
		if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			slog.Error("queue: failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		return
	}

	if handlerErr != nil {
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			handlerErr = errors.New("task exceeded soft deadline: " + handlerErr.Error())
		}
		slog.Error("queue: task failed", "task", job.TaskName, "job_id", job.ID, "doc_id", job.DocID, "elapsed", elapsed, "error", handlerErr)
		if failErr := p.queue.Fail(ctx, job.ID, handlerErr.Error()); failErr != nil {
			slog.Error("queue: failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		return
	}

	slog.Info("queue: task succeeded", "task", job.TaskName, "job_id", job.ID, "doc_id", job.DocID, "elapsed", elapsed)
	if err := p.queue.Complete(ctx, job.ID); err != nil {
		slog.Error("queue: failed to record job completion", "job_id", job.ID, "error", err)
	}
}
