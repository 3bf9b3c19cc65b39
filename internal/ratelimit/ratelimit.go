// Package ratelimit provides token bucket limiters for outbound calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use.
//
// Tokens are added at refillRate per second up to maxTokens; each call
// takes one.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// New creates a limiter that starts full.
//
//	// 20 pushes per second with a burst of 20
//	limiter := ratelimit.New(20, 20)
func New(maxTokens, refillRate float64) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// NewPerSecond creates a limiter for rps calls per second with a one second
// burst of at least one call. Non-positive rps yields a limiter that never
// refills past one token.
func NewPerSecond(rps float64) *Limiter {
	if rps <= 0 {
		return New(1, 0)
	}
	return New(max(rps, 1), rps)
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// Allow takes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is taken or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		if l.refillRate <= 0 {
			l.mu.Unlock()
			<-ctx.Done()
			return ctx.Err()
		}
		wait := time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// IsFull reports whether the bucket is at capacity.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= l.maxTokens
}
