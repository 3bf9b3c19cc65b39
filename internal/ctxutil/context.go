// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey    contextKey = "ctxutil.userID"
	intentIDKey  contextKey = "ctxutil.intentID"
	requestIDKey contextKey = "ctxutil.requestID"
	triggerKey   contextKey = "ctxutil.trigger"
)

// WithUserID adds the owner of the intent being processed to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context.
// Returns the user ID if found, empty string otherwise.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if userID, ok := v.(string); ok && userID != "" {
			return userID
		}
	}
	return ""
}

// WithIntentID adds the id of the intent driving a matching pass.
func WithIntentID(ctx context.Context, intentID string) context.Context {
	return context.WithValue(ctx, intentIDKey, intentID)
}

// GetIntentID retrieves the intent ID from the context.
func GetIntentID(ctx context.Context) string {
	if v := ctx.Value(intentIDKey); v != nil {
		if intentID, ok := v.(string); ok && intentID != "" {
			return intentID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithTrigger records what started a matching pass ("intent", "sweep", "admin").
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey, trigger)
}

// GetTrigger returns the trigger name, or "intent" when none was set.
func GetTrigger(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey).(string); ok && t != "" {
		return t
	}
	return "intent"
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Only the tracing values are copied onto a fresh context.Background(), so the
// parent context is not retained (Go issue #64478).
//
// Use for matching passes that must outlive the HTTP request that enqueued them.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if userID := GetUserID(ctx); userID != "" {
		newCtx = WithUserID(newCtx, userID)
	}
	if intentID := GetIntentID(ctx); intentID != "" {
		newCtx = WithIntentID(newCtx, intentID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if t, ok := ctx.Value(triggerKey).(string); ok && t != "" {
		newCtx = WithTrigger(newCtx, t)
	}

	return newCtx
}
