package ratelimit

import (
	"testing"
	"time"
)

func TestPerKeyLimiter(t *testing.T) {
	t.Parallel()
	pkl := NewPerKeyLimiter(PerKeyConfig{MaxTokens: 2, RefillRate: 0.001, CleanupPeriod: time.Hour})
	defer pkl.Stop()

	var dropped []string
	pkl.OnDrop(func(key string) { dropped = append(dropped, key) })

	if !pkl.Allow("a") || !pkl.Allow("a") {
		t.Fatal("first two calls for a should pass")
	}
	if pkl.Allow("a") {
		t.Error("third call for a should be limited")
	}
	if !pkl.Allow("b") {
		t.Error("b has its own bucket")
	}
	if !pkl.Allow("") {
		t.Error("empty key is never limited")
	}

	if len(dropped) != 1 || dropped[0] != "a" {
		t.Errorf("dropped = %v, want [a]", dropped)
	}
	if n := pkl.ActiveCount(); n != 2 {
		t.Errorf("ActiveCount() = %d, want 2", n)
	}
}

func TestPerKeyLimiter_Cleanup(t *testing.T) {
	t.Parallel()
	pkl := NewPerKeyLimiter(PerKeyConfig{MaxTokens: 1, RefillRate: 1000, CleanupPeriod: time.Hour})
	defer pkl.Stop()

	pkl.Allow("a")
	time.Sleep(10 * time.Millisecond)
	pkl.cleanup()

	if n := pkl.ActiveCount(); n != 0 {
		t.Errorf("ActiveCount() after cleanup = %d, want 0", n)
	}
}

func TestPerKeyLimiter_StopTwice(t *testing.T) {
	t.Parallel()
	pkl := NewPerKeyLimiter(PerKeyConfig{MaxTokens: 1, RefillRate: 1})
	pkl.Stop()
	pkl.Stop()
}
