// Package task runs network-bound operations off the interactive path on a
// bounded worker pool. Every submitted task delivers exactly one outcome:
// a result or an error. Fire-and-forget tasks log their outcome instead.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/gmarini/reviewdesk/pkg/ctxutil"
)

// Runner is a bounded pool of background workers. Tasks submitted
// concurrently run in parallel up to the pool limit with no ordering
// guarantee between them; callers that mutate the same record must
// serialize through the session.
type Runner struct {
	sem *semaphore.Weighted
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewRunner creates a Runner that executes at most maxConcurrent tasks at once.
func NewRunner(maxConcurrent int64, log *slog.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		sem: semaphore.NewWeighted(maxConcurrent),
		log: log.With("component", "task_runner"),
	}
}

// Task is a handle to a submitted background task. Its outcome becomes
// available exactly once, when the task finishes; Wait may be called any
// number of times and always observes the same outcome.
type Task[T any] struct {
	ID   uuid.UUID
	Name string

	done   chan struct{}
	result T
	err    error
}

// Submit schedules fn on the pool and returns a handle to its outcome.
// The task context carries the task's ID and name.
func Submit[T any](r *Runner, ctx context.Context, name string, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{
		ID:   uuid.New(),
		Name: name,
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(t.done)

		if err := r.sem.Acquire(ctx, 1); err != nil {
			t.err = fmt.Errorf("task %s: %w", name, err)
			return
		}
		defer r.sem.Release(1)

		taskCtx := ctxutil.WithTask(ctx, t.ID, name)
		r.log.Debug("task started", slog.String("task", name), slog.String("task_id", t.ID.String()))

		t.result, t.err = fn(taskCtx)
		if t.err != nil {
			r.log.Warn("task failed",
				slog.String("task", name),
				slog.String("task_id", t.ID.String()),
				slog.String("error", t.err.Error()),
			)
		}
	}()

	return t
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("task %s: %w", t.Name, ctx.Err())
	}
}

// Go schedules a fire-and-forget task whose failure is swallowed and logged.
// Used for best-effort deletions where a stray remote object is preferable
// to blocking the caller.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) {
	Submit(r, ctx, name, func(taskCtx context.Context) (struct{}, error) {
		return struct{}{}, fn(taskCtx)
	})
}

// Wait blocks until every submitted task has finished. Used on shutdown so
// best-effort deletions get a chance to complete.
func (r *Runner) Wait() {
	r.wg.Wait()
}
