// Package storage is the SQLite-backed store of intents, match records and
// contact profiles.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const (
	busyTimeoutMillis  = 30000
	slowQueryThreshold = 100 * time.Millisecond
)

// DB wraps the SQLite database. Writes go through a single-connection pool so
// SQLite never sees concurrent writers; reads use a separate pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// New opens (creating if needed) the database at dbPath and applies the schema.
// ":memory:" opens a private in-memory database that shares one connection
// for reads and writes.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath == ":memory:" {
		conn, err := open(ctx, "file::memory:", 1)
		if err != nil {
			return nil, err
		}
		db := &DB{writer: conn, reader: conn, path: dbPath}
		if err := InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return db, nil
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath
	writer, err := open(ctx, dsn, 1)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(ctx, writer); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	reader, err := open(ctx, dsn, 8)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	return &DB{writer: writer, reader: reader, path: dbPath}, nil
}

// open applies the connection pragmas through the DSN so that every pooled
// connection gets them, not just the first.
func open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "foreign_keys(1)")
	if dsn != "file::memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}

	conn, err := sql.Open("sqlite", dsn+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	if dsn == "file::memory:" {
		// the database lives only as long as its connection
		conn.SetConnMaxLifetime(0)
		conn.SetConnMaxIdleTime(0)
	} else {
		conn.SetConnMaxLifetime(time.Hour)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Writer returns the write connection pool.
func (db *DB) Writer() *sql.DB {
	return db.writer
}

// CreateSnapshot writes a consistent copy of the database to dest using
// VACUUM INTO. dest must not exist.
func (db *DB) CreateSnapshot(ctx context.Context, dest string) error {
	if db.path == ":memory:" {
		return fmt.Errorf("snapshot of in-memory database is not supported")
	}
	start := time.Now()
	if _, err := db.writer.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	slog.DebugContext(ctx, "database snapshot created",
		"dest", dest,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// observe warns about slow statements.
func observe(ctx context.Context, operation string, start time.Time, attrs ...any) {
	duration := time.Since(start)
	if duration <= slowQueryThreshold {
		return
	}
	args := append([]any{"operation", operation, "duration_ms", duration.Milliseconds()}, attrs...)
	slog.WarnContext(ctx, "slow database operation", args...)
}

func fromUnixMilli(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
