package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	runIDKey contextKey = iota
	assetIDKey
)

// WithRunID stores a scan run identifier on the context for log correlation.
func WithRunID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithAssetID stores an asset identifier on the context for log correlation.
func WithAssetID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, assetIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(runIDKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldRunID, id))
	}
	if id, ok := ctx.Value(assetIDKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldAssetID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
