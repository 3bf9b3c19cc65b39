package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewWithWriter_RenamesKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)
	log.Warn("queue full")

	entry := decode(t, &buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "queue full", entry["message"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)
	log.Info("ignored")
	assert.Zero(t, buf.Len())
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).
		WithModule("match").
		WithField("candidates", 3).
		WithFields(map[string]any{"rule": "mutual_swap"}).
		WithError(errors.New("boom"))
	log.Info("pass done")

	entry := decode(t, &buf)
	assert.Equal(t, "match", entry["module"])
	assert.InDelta(t, 3, entry["candidates"], 0)
	assert.Equal(t, "mutual_swap", entry["rule"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_ContextValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	ctx = ctxutil.WithIntentID(ctx, "i1")
	ctx = ctxutil.WithRequestID(ctx, "r1")
	log.InfoContext(ctx, "matched")

	entry := decode(t, &buf)
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "i1", entry["intent_id"])
	assert.Equal(t, "r1", entry["request_id"])
}

func TestLogger_ContextHandlerSkipsEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.InfoContext(ctxutil.WithUserID(context.Background(), ""), "no user")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "user_id")
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	t.Parallel()

	log := NewWithWriter("info", &bytes.Buffer{})
	assert.NoError(t, log.Shutdown(context.Background()))
	assert.NoError(t, log.WithModule("x").Shutdown(context.Background()))
}
