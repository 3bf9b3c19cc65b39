// Package backup keeps the SQLite database safe in object storage: it
// restores the latest snapshot on boot and uploads fresh snapshots while this
// replica holds the leader lock.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/objectstore"
)

// Bucket stores snapshot objects.
type Bucket interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Leader is a lease shared by all replicas.
type Leader interface {
	Acquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Held() bool
}

// Snapshotter writes a consistent copy of the database to a new file.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, dest string) error
}

// Config names the objects and scratch space.
type Config struct {
	SnapshotKey string
	TempDir     string // defaults to os.TempDir()
}

// Manager uploads and restores snapshots.
type Manager struct {
	bucket  Bucket
	leader  Leader
	cfg     Config
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New creates a Manager.
func New(bucket Bucket, leader Leader, cfg Config, m *metrics.Metrics, log *logger.Logger) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Manager{bucket: bucket, leader: leader, cfg: cfg, metrics: m, logger: log.WithModule("backup")}
}

// Restore downloads the latest snapshot to dbPath when no local database
// exists. It reports whether a snapshot was restored; a missing snapshot is
// not an error.
func (m *Manager) Restore(ctx context.Context, dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat database: %w", err)
	}

	body, etag, err := m.bucket.Get(ctx, m.cfg.SnapshotKey)
	if errors.Is(err, objectstore.ErrNotFound) {
		m.logger.InfoContext(ctx, "No snapshot to restore; starting empty")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return false, fmt.Errorf("create data dir: %w", err)
	}
	if err := objectstore.DecompressToFile(body, dbPath); err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}

	m.logger.WithField("etag", etag).InfoContext(ctx, "Database restored from snapshot")
	return true, nil
}

// Backup snapshots db, compresses it and uploads it. It returns the ETag of
// the uploaded object.
func (m *Manager) Backup(ctx context.Context, db Snapshotter) (string, error) {
	start := time.Now()
	etag, err := m.backup(ctx, db)
	if err != nil {
		m.metrics.RecordBackup("error", time.Since(start).Seconds())
		return "", err
	}
	m.metrics.RecordBackup("success", time.Since(start).Seconds())
	m.logger.WithFields(map[string]any{
		"etag":        etag,
		"duration_ms": time.Since(start).Milliseconds(),
	}).InfoContext(ctx, "Snapshot uploaded")
	return etag, nil
}

func (m *Manager) backup(ctx context.Context, db Snapshotter) (string, error) {
	dir, err := os.MkdirTemp(m.cfg.TempDir, "swap-backup-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	raw := filepath.Join(dir, "snapshot.db")
	if err := db.CreateSnapshot(ctx, raw); err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	packed := raw + ".zst"
	if err := objectstore.CompressFile(raw, packed); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}

	f, err := os.Open(packed)
	if err != nil {
		return "", fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	etag, err := m.bucket.Put(ctx, m.cfg.SnapshotKey, f, "application/zstd")
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return etag, nil
}

// Lead acquires or renews the leader lease and reports whether this replica
// leads. Errors are logged and count as not leading.
func (m *Manager) Lead(ctx context.Context) bool {
	var (
		ok  bool
		err error
	)
	if m.leader.Held() {
		ok, err = m.leader.Renew(ctx)
		if err == nil && !ok {
			m.logger.WarnContext(ctx, "Leader lock lost")
		}
	} else {
		ok, err = m.leader.Acquire(ctx)
		if err == nil && ok {
			m.logger.InfoContext(ctx, "Leader lock acquired")
		}
	}
	if err != nil {
		m.logger.WithError(err).WarnContext(ctx, "Leader lock request failed")
		return false
	}
	return ok
}

// Release gives up leadership.
func (m *Manager) Release(ctx context.Context) error {
	return m.leader.Release(ctx)
}
