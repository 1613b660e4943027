package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyDocumentID contextKey = "doc_id"
	ContextKeyRunID      contextKey = "run_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRun tags ctx with the document and run currently being processed.
func WithRun(ctx context.Context, docID, runID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyDocumentID, docID)
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunFromContext returns the document and run IDs set by WithRun.
func RunFromContext(ctx context.Context) (docID, runID string) {
	docID, _ = ctx.Value(ContextKeyDocumentID).(string)
	runID, _ = ctx.Value(ContextKeyRunID).(string)
	return docID, runID
}

// LoggerFrom decorates logger with whatever request/run identifiers ctx carries.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		logger = logger.With("request_id", rid)
	}
	if doc, run := RunFromContext(ctx); doc != "" {
		logger = logger.With("doc_id", doc, "run_id", run)
	}
	return logger
}
