package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func testExtractor(ctx context.Context) (slog.Attr, bool) {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return slog.String("request_id", v), true
	}
	return slog.Attr{}, false
}

// newTestLogger mirrors New but writes to a buffer instead of stdout.
func newTestLogger(buf *bytes.Buffer, extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(decorate(h, extractors))
}

func TestContextExtraction(t *testing.T) {
	t.Parallel()

	t.Run("extracted attribute lands on the record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newTestLogger(&buf, testExtractor)

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
		log.InfoContext(ctx, "hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "req-42", rec["request_id"])
	})

	t.Run("extractor can decline", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newTestLogger(&buf, testExtractor)

		log.InfoContext(context.Background(), "hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.NotContains(t, rec, "request_id")
	})

	t.Run("extraction survives With and groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newTestLogger(&buf, testExtractor).With(slog.String("component", "api"))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
		log.InfoContext(ctx, "hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "req-42", rec["request_id"])
		require.Equal(t, "api", rec["component"])
	})

	t.Run("nil extractors are skipped", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newTestLogger(&buf, nil, testExtractor)

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
		log.InfoContext(ctx, "hello")
		require.Contains(t, buf.String(), "req-42")
	})
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	log := slog.New(newFanout(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	log.Info("only stdout")
	log.Error("both")

	require.Contains(t, a.String(), "only stdout")
	require.Contains(t, a.String(), "both")
	require.NotContains(t, b.String(), "only stdout")
	require.Contains(t, b.String(), "both")
}
