package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	runIDKey  = ctxKey{"run_id"}
)

// WithLogger returns ctx carrying logger. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger carried by ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, _ := ctx.Value(loggerKey).(*zerolog.Logger); l != nil {
			return l
		}
	}
	return Default()
}

// Ctx is shorthand for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger { return FromContext(ctx) }

// WithRun tags the context logger with a refresh run ID and remembers it
// for RunID.
func WithRun(ctx context.Context, runID string) context.Context {
	return WithField(context.WithValue(ctx, runIDKey, runID), "run_id", runID)
}

// RunID returns the run ID stored by WithRun.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithFields tags the context logger with each field.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	zctx := FromContext(ctx).With()
	for k, v := range fields {
		zctx = addField(zctx, k, v)
	}
	l := zctx.Logger()
	return WithLogger(ctx, &l)
}

// WithField tags the context logger with one field.
func WithField(ctx context.Context, key string, value any) context.Context {
	l := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &l)
}

// WithBatch tags the context logger with a batch location.
func WithBatch(ctx context.Context, batch string) context.Context {
	return WithField(ctx, "batch", batch)
}

// WithItem tags the context logger with a portal item or layer ID.
func WithItem(ctx context.Context, itemID string) context.Context {
	return WithField(ctx, "item_id", itemID)
}

// WithOperation tags the context logger with a pipeline stage.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
