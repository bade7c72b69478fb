package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	taskIDKey   ctxKey = "task_id"
	taskNameKey ctxKey = "task_name"
)

// WithTask stores a background task's ID and name in the context so that
// log lines emitted deep inside a task can be correlated with its outcome.
func WithTask(ctx context.Context, id uuid.UUID, name string) context.Context {
	ctx = context.WithValue(ctx, taskIDKey, id)
	return context.WithValue(ctx, taskNameKey, name)
}

// TaskIDFromCtx extracts the task ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func TaskIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(taskIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// TaskNameFromCtx extracts the task name from the context.
// Returns an empty string if absent.
func TaskNameFromCtx(ctx context.Context) string {
	name, _ := ctx.Value(taskNameKey).(string)
	return name
}
