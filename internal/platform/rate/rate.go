// Package rate provides a token bucket limiter used to stay courteous to
// the archive's public endpoints.
package rate

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket: tokens refill at a fixed rate up to the burst
// capacity, and each operation consumes one.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  int
	tokens float64
	last   time.Time
}

// New creates a limiter allowing rps operations per second with the given
// burst capacity. Non-positive arguments fall back to 1.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rate:   rps,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.waitDuration()):
		}
	}
}

// Allow consumes a token if one is available, without blocking.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(time.Now())
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// SetRate changes the refill rate.
func (l *Limiter) SetRate(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rps > 0 {
		l.advance(time.Now())
		l.rate = rps
	}
}

// SetBurst changes the bucket capacity.
func (l *Limiter) SetBurst(burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if burst > 0 {
		l.burst = burst
		if l.tokens > float64(burst) {
			l.tokens = float64(burst)
		}
	}
}

// advance refills tokens for the elapsed time. Caller holds l.mu.
func (l *Limiter) advance(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
	l.last = now
}

// waitDuration estimates how long until the next token becomes available.
func (l *Limiter) waitDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(time.Now())
	if l.tokens >= 1 {
		return 0
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}
