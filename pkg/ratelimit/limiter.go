package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing requests. Wait blocks until the next request may
// proceed or the context is cancelled.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedInterval sleeps a fixed delay on every Wait call. It reproduces the
// "pause after each processed item" throttling used by both batch jobs.
type FixedInterval struct {
	Delay time.Duration
}

// NewFixedInterval creates a fixed-delay pacer.
func NewFixedInterval(delay time.Duration) *FixedInterval {
	return &FixedInterval{Delay: delay}
}

// Wait sleeps for the configured delay, aborting early on cancellation.
func (f *FixedInterval) Wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}

	timer := time.NewTimer(f.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TokenBucket limits throughput to a fixed number of requests per refill
// period, shared across all workers.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket allowing capacity requests per period.
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow reports whether a request may proceed right now, consuming a token
// if so.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		sleep := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if sleep <= 0 {
			sleep = 100 * time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// refill restores the bucket once the refill period has elapsed.
// Callers must hold the mutex.
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
