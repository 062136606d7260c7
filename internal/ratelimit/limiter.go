// Package ratelimit provides a token-bucket limiter for the marketplace
// adapter. Oracle clients use golang.org/x/time/rate instead; this bucket
// exists for the scraper, which needs burst-then-drip pacing.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket: maxTokens burst capacity, one token added every
// refillRate.
type Limiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	mu         sync.Mutex
	lastRefill time.Time
}

func NewLimiter(maxTokens int, refillRate time.Duration) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token when one is available and reports whether it did.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available.
func (l *Limiter) Wait() {
	for !l.Allow() {
		time.Sleep(l.refillRate / time.Duration(l.maxTokens))
	}
}

// WaitWithTimeout waits for a token, giving up after timeout. Reports whether
// a token was acquired.
func (l *Limiter) WaitWithTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if l.Allow() {
			return true
		}
		sleep := l.refillRate / time.Duration(l.maxTokens)
		if sleep > time.Until(deadline) {
			sleep = time.Until(deadline)
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return false
}

// TokensAvailable reports the current bucket fill.
func (l *Limiter) TokensAvailable() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// refill adds tokens for the time elapsed since the last refill. Caller holds
// the mutex.
func (l *Limiter) refill() {
	now := time.Now()
	add := int(now.Sub(l.lastRefill) / l.refillRate)
	if add > 0 {
		l.tokens += add
		if l.tokens > l.maxTokens {
			l.tokens = l.maxTokens
		}
		l.lastRefill = now
	}
}
