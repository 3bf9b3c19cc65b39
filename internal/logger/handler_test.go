package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingHandler records nothing and always errors.
type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

// countingHandler counts handled records; it is safe for concurrent use.
type countingHandler struct {
	mu    sync.Mutex
	count int
	block chan struct{}
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *countingHandler) Handle(context.Context, slog.Record) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.count++
	h.mu.Unlock()
	return nil
}
func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }
func (h *countingHandler) n() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func TestMultiHandler_NilFiltering(t *testing.T) {
	t.Parallel()

	mh := NewMultiHandler(nil, slog.NewJSONHandler(&bytes.Buffer{}, nil), nil)
	assert.Len(t, mh.handlers, 1)
}

func TestMultiHandler_FanOut(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mh := NewMultiHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(mh).With("k", "v")

	log.Info("info only")
	assert.NotZero(t, a.Len())
	assert.Zero(t, b.Len())

	log.Error("both")
	assert.Contains(t, b.String(), `"k":"v"`)
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()

	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	mh := NewMultiHandler(failingHandler{inner}, inner)

	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()

	sink := &countingHandler{}
	h := NewAsyncHandler(sink, AsyncOptions{BufferSize: 16})
	log := slog.New(h)
	for range 10 {
		log.Info("record")
	}

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, 10, sink.n())

	// Records after shutdown are ignored, a second shutdown is a no-op.
	log.Info("late")
	assert.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, 10, sink.n())
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := &countingHandler{block: make(chan struct{})}
	h := NewAsyncHandler(sink, AsyncOptions{BufferSize: 1})
	log := slog.New(h)
	for range 20 {
		log.Info("record")
	}
	assert.Positive(t, h.Dropped())

	close(sink.block)
	require.NoError(t, h.Shutdown(context.Background()))
}

func TestAsyncHandler_NilShutdown(t *testing.T) {
	t.Parallel()

	var h *AsyncHandler
	assert.NoError(t, h.Shutdown(context.Background()))
	assert.Zero(t, h.Dropped())
}
