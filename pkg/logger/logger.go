// Package logger builds the service's slog loggers: JSON to stdout,
// optionally mirrored to Sentry, with per-call context extraction so
// request-scoped values like the request ID land on every log line.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextExtractor pulls an attribute out of the call context. Return
// false to skip the attribute for that record.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// New creates a JSON logger at the given level with optional context
// extractors.
func New(level slog.Level, extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(decorate(h, extractors))
}

// NewNop creates a logger that discards everything; the default where a
// logger was not configured.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// extractHandler injects context-extracted attributes into each record
// before delegating. Extraction runs per log call so request-scoped
// values stay fresh.
type extractHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func decorate(next slog.Handler, extractors []ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	if len(clean) == 0 {
		return next
	}
	return &extractHandler{next: next, extractors: clean}
}

func (h *extractHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *extractHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *extractHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &extractHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *extractHandler) WithGroup(name string) slog.Handler {
	return &extractHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
