package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultAsyncBufferSize   = 1024
	defaultAsyncFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the async log pipeline.
type AsyncOptions struct {
	BufferSize   int
	FlushTimeout time.Duration
}

type pendingRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// asyncQueue is shared by every handler derived from one AsyncHandler.
type asyncQueue struct {
	records      chan pendingRecord
	flushTimeout time.Duration
	stopped      atomic.Bool
	dropped      atomic.Uint64
	done         sync.WaitGroup
}

func newAsyncQueue(opts AsyncOptions) *asyncQueue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultAsyncBufferSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultAsyncFlushTimeout
	}

	q := &asyncQueue{
		records:      make(chan pendingRecord, opts.BufferSize),
		flushTimeout: opts.FlushTimeout,
	}
	q.done.Go(func() {
		for p := range q.records {
			_ = p.handler.Handle(p.ctx, p.record)
		}
	})
	return q
}

func (q *asyncQueue) push(p pendingRecord) {
	if q.stopped.Load() {
		return
	}
	select {
	case q.records <- p:
	default:
		q.dropped.Add(1)
	}
}

func (q *asyncQueue) stop(ctx context.Context) error {
	if q.stopped.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	close(q.records)

	drained := make(chan struct{})
	go func() {
		q.done.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler hands records to a background goroutine so that slow remote
// sinks never block a matching pass. Records are dropped when the buffer is full.
type AsyncHandler struct {
	queue   *asyncQueue
	handler slog.Handler
}

// NewAsyncHandler wraps handler with a bounded background queue.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{queue: newAsyncQueue(opts), handler: handler}
}

// Enabled reports whether the underlying handler is enabled for the given level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues a clone of the record.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.handler.Enabled(ctx, r.Level) {
		return nil
	}
	h.queue.push(pendingRecord{ctx: ctx, record: r.Clone(), handler: h.handler})
	return nil
}

// WithAttrs returns a handler sharing the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a handler sharing the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the buffer was full.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil || h.queue == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Shutdown flushes pending logs up to the configured timeout.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.queue == nil {
		return nil
	}
	return h.queue.stop(ctx)
}
