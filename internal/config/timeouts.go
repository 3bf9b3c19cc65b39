// Package config provides centralized timeout constants for the application.
//
// A matching pass must never block indefinitely: every store call and every
// outbound notification runs under its own deadline, and a timed out sub-step
// is logged and skipped without failing its siblings.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead bounds reading a request. Trigger payloads are single intents.
	HTTPRead = 10 * time.Second

	// HTTPWrite covers the synchronous admin sweep as well as plain JSON replies.
	HTTPWrite = 2 * time.Minute

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second

	// ReadinessCheckTimeout bounds the database ping behind /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Matching defaults
const (
	// StoreCall is the default deadline for one store query or write.
	StoreCall = 5 * time.Second

	// NotifyCall is the default deadline for one outbound notification.
	NotifyCall = 10 * time.Second

	// MatchPass bounds one dispatched matching pass.
	MatchPass = 2 * time.Minute

	// SweepRun bounds a whole background sweep.
	SweepRun = 10 * time.Minute
)

// Database timeouts
const (
	// DatabaseBusyTimeout is how long SQLite waits on a locked database (ms in the DSN).
	DatabaseBusyTimeout = 30 * time.Second

	// SlowQueryThreshold triggers a warning log for slow statements.
	SlowQueryThreshold = 500 * time.Millisecond
)

// Backup timeouts
const (
	// SnapshotTransfer bounds one snapshot upload or download.
	SnapshotTransfer = 5 * time.Minute

	// LockRequest bounds a single lock acquire/renew/release call.
	LockRequest = 15 * time.Second
)

// Background job intervals
const (
	// StoreMetricsInterval is how often row counts are exported.
	StoreMetricsInterval = time.Minute
)

// GracefulShutdown is the default time allowed for draining on SIGTERM.
const GracefulShutdown = 30 * time.Second
