// Package logging carries evolution identifiers through context so every log
// event emitted while working on a task is tagged with it.
package logging

import "context"

type contextKey string

const (
	taskKey    contextKey = "task"
	versionKey contextKey = "version"
	attemptKey contextKey = "attempt"
)

// WithTask adds the issue number being processed to the context.
func WithTask(ctx context.Context, number int) context.Context {
	return context.WithValue(ctx, taskKey, number)
}

// WithVersion adds the artifact version being built to the context.
func WithVersion(ctx context.Context, version int) context.Context {
	return context.WithValue(ctx, versionKey, version)
}

// WithAttempt adds the attempt index to the context.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// GetTask retrieves the issue number from the context.
// Returns 0 if not present.
func GetTask(ctx context.Context) int {
	return getInt(ctx, taskKey)
}

// GetVersion retrieves the artifact version from the context.
// Returns 0 if not present.
func GetVersion(ctx context.Context) int {
	return getInt(ctx, versionKey)
}

// GetAttempt retrieves the attempt index from the context.
// Returns 0 if not present.
func GetAttempt(ctx context.Context) int {
	return getInt(ctx, attemptKey)
}

func getInt(ctx context.Context, key contextKey) int {
	if v, ok := ctx.Value(key).(int); ok {
		return v
	}
	return 0
}
