// Package sentry wraps the Sentry Go SDK: initialisation from config and
// capture helpers that attach matching context (intent, trigger) as tags.
package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is the project DSN. Empty disables Sentry.
	DSN string

	// Environment identifies the deployment environment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	// Debug enables Sentry SDK debug logging.
	Debug bool
}

// Initialize sets up the Sentry SDK. If DSN is empty, Sentry stays disabled
// and nil is returned.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException captures an error and sends it to Sentry.
func CaptureException(err error) {
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext captures err on the request hub when there is
// one, tagging it with the tracing values carried by ctx.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range Tags(ctx) {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Tags returns the Sentry tags derived from ctx.
func Tags(ctx context.Context) map[string]string {
	tags := map[string]string{"trigger": ctxutil.GetTrigger(ctx)}
	if id := ctxutil.GetIntentID(ctx); id != "" {
		tags["intent_id"] = id
	}
	if id := ctxutil.GetUserID(ctx); id != "" {
		tags["user_id"] = id
	}
	if id, ok := ctxutil.GetRequestID(ctx); ok && id != "" {
		tags["request_id"] = id
	}
	return tags
}

// RecoverValue converts a recovered panic value into an event.
func RecoverValue(ctx context.Context, v any) {
	if !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, tag := range Tags(ctx) {
			scope.SetTag(k, tag)
		}
		hub.Recover(v)
	})
}
