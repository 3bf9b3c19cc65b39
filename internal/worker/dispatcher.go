// Package worker runs matching passes off the request path on a bounded pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/config"
	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/match"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/sentry"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("dispatcher closed")

// ErrQueueFull is returned by Enqueue when no slot is free.
var ErrQueueFull = errors.New("dispatch queue full")

// Processor runs one matching pass.
type Processor interface {
	Process(ctx context.Context, in *storage.Intent) (match.Summary, error)
}

// Config sizes the pool.
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration // per pass; zero means config.MatchPass
}

type job struct {
	ctx    context.Context
	intent *storage.Intent
}

// Dispatcher owns a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	proc    Processor
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers workers.
func NewDispatcher(proc Processor, cfg Config, m *metrics.Metrics, log *logger.Logger) *Dispatcher {
	workers := max(cfg.Workers, 1)
	size := max(cfg.QueueSize, 1)
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = config.MatchPass
	}

	d := &Dispatcher{
		proc:    proc,
		timeout: timeout,
		metrics: m,
		logger:  log.WithModule("dispatcher"),
		jobs:    make(chan job, size),
	}
	for range workers {
		d.wg.Go(d.loop)
	}
	return d
}

// Enqueue schedules a pass for in without blocking. The pass runs on a
// context detached from ctx that keeps its tracing values. A full queue drops
// the job; the periodic sweep picks the intent up later.
func (d *Dispatcher) Enqueue(ctx context.Context, in *storage.Intent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- job{ctx: ctxutil.PreserveTracing(ctx), intent: in}:
		d.metrics.SetQueueLength(len(d.jobs))
		return nil
	default:
		d.metrics.RecordDispatchDrop()
		d.logger.WithField("intent_id", in.ID).WarnContext(ctx, "Dispatch queue full; pass dropped until next sweep")
		return ErrQueueFull
	}
}

// Len returns the number of queued jobs.
func (d *Dispatcher) Len() int {
	return len(d.jobs)
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx
// to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) loop() {
	for j := range d.jobs {
		d.metrics.SetQueueLength(len(d.jobs))
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx := ctxutil.WithUserID(ctxutil.WithIntentID(j.ctx, j.intent.ID), j.intent.OwnerID)
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", r).ErrorContext(ctx, "Panic in matching pass")
			sentry.RecoverValue(ctx, r)
		}
	}()

	if _, err := d.proc.Process(ctx, j.intent); err != nil {
		d.logger.WithError(err).WarnContext(ctx, "Matching pass failed")
		sentry.CaptureExceptionWithContext(ctx, err)
	}
}
