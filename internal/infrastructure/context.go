package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID returns a random v4 UUID. Request ids, analysis trace
// ids and job trace ids all come from here.
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID gives CLI and job contexts, which never pass the RequestID
// middleware, a trace id of their own.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}

// WithComponent tags logger lines with the emitting component.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError attaches err as the "error" attribute. A nil err leaves the
// logger unchanged.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}
