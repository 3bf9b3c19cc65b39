package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/match"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

type procFunc func(ctx context.Context, in *storage.Intent) (match.Summary, error)

func (f procFunc) Process(ctx context.Context, in *storage.Intent) (match.Summary, error) {
	return f(ctx, in)
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestDispatcher_RunsJobs(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen = map[string]string{}
	)
	d := NewDispatcher(procFunc(func(ctx context.Context, in *storage.Intent) (match.Summary, error) {
		rid, _ := ctxutil.GetRequestID(ctx)
		mu.Lock()
		seen[in.ID] = rid + "/" + ctxutil.GetIntentID(ctx) + "/" + ctxutil.GetUserID(ctx)
		mu.Unlock()
		return match.Summary{}, nil
	}), Config{Workers: 2, QueueSize: 8}, nil, testLogger())

	reqCtx, cancel := context.WithCancel(ctxutil.WithRequestID(context.Background(), "req-1"))
	require.NoError(t, d.Enqueue(reqCtx, &storage.Intent{ID: "a", OwnerID: "ua"}))
	require.NoError(t, d.Enqueue(reqCtx, &storage.Intent{ID: "b", OwnerID: "ub"}))
	cancel() // the request ending must not cancel queued passes

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, map[string]string{"a": "req-1/a/ua", "b": "req-1/b/ub"}, seen)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(procFunc(func(context.Context, *storage.Intent) (match.Summary, error) {
		started <- struct{}{}
		<-release
		return match.Summary{}, nil
	}), Config{Workers: 1, QueueSize: 1}, m, testLogger())

	ctx := context.Background()
	require.NoError(t, d.Enqueue(ctx, &storage.Intent{ID: "1"}))
	<-started // worker busy
	require.NoError(t, d.Enqueue(ctx, &storage.Intent{ID: "2"}))
	assert.ErrorIs(t, d.Enqueue(ctx, &storage.Intent{ID: "3"}), ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchDropped))

	close(release)
	require.NoError(t, d.Shutdown(ctx))
	assert.ErrorIs(t, d.Enqueue(ctx, &storage.Intent{ID: "4"}), ErrClosed)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDispatcher(procFunc(func(_ context.Context, in *storage.Intent) (match.Summary, error) {
		calls.Add(1)
		if in.ID == "boom" {
			panic("nil map")
		}
		return match.Summary{}, errors.New("store down")
	}), Config{Workers: 1, QueueSize: 4}, nil, testLogger())

	ctx := context.Background()
	require.NoError(t, d.Enqueue(ctx, &storage.Intent{ID: "boom"}))
	require.NoError(t, d.Enqueue(ctx, &storage.Intent{ID: "after"}))
	require.NoError(t, d.Shutdown(ctx))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_ShutdownDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	d := NewDispatcher(procFunc(func(context.Context, *storage.Intent) (match.Summary, error) {
		<-release
		return match.Summary{}, nil
	}), Config{Workers: 1, QueueSize: 1}, nil, testLogger())
	t.Cleanup(func() { close(release) })

	require.NoError(t, d.Enqueue(context.Background(), &storage.Intent{ID: "slow"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)
	// second call is safe
	assert.Error(t, d.Shutdown(ctx))
}

func TestDispatcher_JobTimeout(t *testing.T) {
	t.Parallel()

	done := make(chan error, 1)
	d := NewDispatcher(procFunc(func(ctx context.Context, _ *storage.Intent) (match.Summary, error) {
		<-ctx.Done()
		done <- ctx.Err()
		return match.Summary{}, ctx.Err()
	}), Config{Workers: 1, QueueSize: 1, JobTimeout: 10 * time.Millisecond}, nil, testLogger())

	require.NoError(t, d.Enqueue(context.Background(), &storage.Intent{ID: "x"}))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("pass was not bounded")
	}
	require.NoError(t, d.Shutdown(context.Background()))
}
