package ratelimit

import (
	"sync"
	"time"
)

// PerKeyConfig configures a PerKeyLimiter.
type PerKeyConfig struct {
	MaxTokens     float64       // burst per key
	RefillRate    float64       // tokens per second per key
	CleanupPeriod time.Duration // how often idle buckets are dropped
}

// PerKeyLimiter keeps one bucket per key, such as a notification recipient.
// Buckets that refill completely are removed by a background loop.
type PerKeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	config   PerKeyConfig
	onDrop   func(key string)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPerKeyLimiter starts a PerKeyLimiter. Call Stop to end its cleanup loop.
func NewPerKeyLimiter(cfg PerKeyConfig) *PerKeyLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	pkl := &PerKeyLimiter{
		limiters: make(map[string]*Limiter),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
	go pkl.cleanupLoop()
	return pkl
}

// OnDrop registers a callback invoked when Allow refuses a key.
func (pkl *PerKeyLimiter) OnDrop(fn func(key string)) {
	pkl.mu.Lock()
	pkl.onDrop = fn
	pkl.mu.Unlock()
}

// Allow takes a token from key's bucket. The empty key is never limited.
func (pkl *PerKeyLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	pkl.mu.Lock()
	limiter, ok := pkl.limiters[key]
	if !ok {
		limiter = New(pkl.config.MaxTokens, pkl.config.RefillRate)
		pkl.limiters[key] = limiter
	}
	onDrop := pkl.onDrop
	pkl.mu.Unlock()

	if limiter.Allow() {
		return true
	}
	if onDrop != nil {
		onDrop(key)
	}
	return false
}

// ActiveCount returns the number of tracked keys.
func (pkl *PerKeyLimiter) ActiveCount() int {
	pkl.mu.Lock()
	defer pkl.mu.Unlock()
	return len(pkl.limiters)
}

func (pkl *PerKeyLimiter) cleanupLoop() {
	ticker := time.NewTicker(pkl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-pkl.stopCh:
			return
		case <-ticker.C:
			pkl.cleanup()
		}
	}
}

func (pkl *PerKeyLimiter) cleanup() {
	pkl.mu.Lock()
	defer pkl.mu.Unlock()
	for key, limiter := range pkl.limiters {
		if limiter.IsFull() {
			delete(pkl.limiters, key)
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (pkl *PerKeyLimiter) Stop() {
	pkl.stopOnce.Do(func() { close(pkl.stopCh) })
}
