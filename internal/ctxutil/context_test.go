package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if userID := GetUserID(context.Background()); userID != "" {
			t.Errorf("Expected empty string, got %s", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "student-42")
		if got := GetUserID(ctx); got != "student-42" {
			t.Errorf("Expected userID student-42, got %s", got)
		}
	})
}

func TestIntentIDContext(t *testing.T) {
	t.Parallel()

	ctx := WithIntentID(context.Background(), "intent-1")
	if got := GetIntentID(ctx); got != "intent-1" {
		t.Errorf("Expected intent-1, got %s", got)
	}
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	if got := GetTrigger(context.Background()); got != "intent" {
		t.Errorf("default trigger = %s, want intent", got)
	}
	if got := GetTrigger(WithTrigger(context.Background(), "sweep")); got != "sweep" {
		t.Errorf("trigger = %s, want sweep", got)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "u1")
	parent = WithIntentID(parent, "i1")
	parent = WithRequestID(parent, "r1")
	parent = WithTrigger(parent, "admin")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("detached context should not be canceled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should not carry a deadline")
	}
	if GetUserID(detached) != "u1" || GetIntentID(detached) != "i1" || GetTrigger(detached) != "admin" {
		t.Error("tracing values were not preserved")
	}
	if id, ok := GetRequestID(detached); !ok || id != "r1" {
		t.Errorf("request id = %q, want r1", id)
	}
}
