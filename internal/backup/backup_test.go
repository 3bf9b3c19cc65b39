package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/objectstore"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (b *memBucket) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return "etag-" + key, nil
}

func (b *memBucket) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, "", objectstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag-" + key, nil
}

type fakeLeader struct {
	held       bool
	acquire    bool
	renew      bool
	err        error
	released   bool
	acquireHit int
	renewHit   int
}

func (l *fakeLeader) Acquire(context.Context) (bool, error) {
	l.acquireHit++
	if l.err != nil {
		return false, l.err
	}
	l.held = l.acquire
	return l.acquire, nil
}

func (l *fakeLeader) Renew(context.Context) (bool, error) {
	l.renewHit++
	if l.err != nil {
		return false, l.err
	}
	l.held = l.renew
	return l.renew, nil
}

func (l *fakeLeader) Release(context.Context) error {
	l.released = true
	l.held = false
	return nil
}

func (l *fakeLeader) Held() bool { return l.held }

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestBackupAndRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := storage.New(ctx, filepath.Join(dir, "src", "swap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.UpsertProfile(ctx, &storage.Profile{UserID: "u1", Handle: "@amy"}))

	bucket := &memBucket{}
	m := metrics.New(prometheus.NewRegistry())
	mgr := New(bucket, &fakeLeader{}, Config{SnapshotKey: "snapshots/swap.db.zst", TempDir: dir}, m, testLogger())

	etag, err := mgr.Backup(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "etag-snapshots/swap.db.zst", etag)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupTotal.WithLabelValues("success")))

	target := filepath.Join(dir, "restored", "swap.db")
	restored, err := mgr.Restore(ctx, target)
	require.NoError(t, err)
	require.True(t, restored)

	copyDB, err := storage.New(ctx, target)
	require.NoError(t, err)
	t.Cleanup(func() { _ = copyDB.Close() })
	p, err := copyDB.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "@amy", p.Handle)

	// an existing database is never overwritten
	restored, err = mgr.Restore(ctx, target)
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestRestore_NoSnapshot(t *testing.T) {
	t.Parallel()
	mgr := New(&memBucket{}, &fakeLeader{}, Config{SnapshotKey: "missing"}, nil, testLogger())
	restored, err := mgr.Restore(context.Background(), filepath.Join(t.TempDir(), "swap.db"))
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestBackup_UploadFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	db, err := storage.New(ctx, filepath.Join(dir, "swap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New(prometheus.NewRegistry())
	mgr := New(&memBucket{putErr: errors.New("503 slow down")}, &fakeLeader{}, Config{SnapshotKey: "s", TempDir: dir}, m, testLogger())

	_, err = mgr.Backup(ctx, db)
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupTotal.WithLabelValues("error")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "swap-backup-", "temp files are cleaned up")
	}
}

func TestLead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := &fakeLeader{acquire: true, renew: true}
	mgr := New(&memBucket{}, l, Config{}, nil, testLogger())

	assert.True(t, mgr.Lead(ctx))
	assert.Equal(t, 1, l.acquireHit)
	assert.True(t, mgr.Lead(ctx))
	assert.Equal(t, 1, l.renewHit, "held lease is renewed")

	l.renew = false
	assert.False(t, mgr.Lead(ctx))

	l.err = errors.New("timeout")
	assert.False(t, mgr.Lead(ctx))

	require.NoError(t, mgr.Release(ctx))
	assert.True(t, l.released)
}
