package logging

import (
	"context"
	"log/slog"
)

type jobIDKey struct{}

// WithJobID stores the job identifier in the context for later logger
// enrichment.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobID extracts a job identifier previously stored with WithJobID.
func JobID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(jobIDKey{}).(int64)
	return id, ok
}

// WithContext returns a logger annotated with any job identity carried
// by the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := JobID(ctx); ok {
		logger = logger.With(Int64(FieldJobID, id))
	}
	return logger
}
