package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	limiter := NewLimiter(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if limiter.Allow() {
		t.Error("4th request should be denied")
	}

	time.Sleep(150 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("request after refill should be allowed")
	}
}

func TestLimiterRefill(t *testing.T) {
	limiter := NewLimiter(2, 50*time.Millisecond)

	limiter.Allow()
	limiter.Allow()

	if limiter.TokensAvailable() != 0 {
		t.Errorf("expected 0 tokens, got %d", limiter.TokensAvailable())
	}

	time.Sleep(60 * time.Millisecond)
	if got := limiter.TokensAvailable(); got != 1 {
		t.Errorf("expected 1 token after refill, got %d", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := limiter.TokensAvailable(); got != 2 {
		t.Errorf("expected bucket back at max 2, got %d", got)
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter(1, 100*time.Millisecond)

	if !limiter.Allow() {
		t.Fatal("first request should be allowed")
	}

	start := time.Now()
	limiter.Wait()
	elapsed := time.Since(start)

	if elapsed < 90*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Errorf("Wait took %v, expected ~100ms", elapsed)
	}

	if limiter.Allow() {
		t.Error("token should have been consumed by Wait")
	}
}

func TestLimiterWaitWithTimeout(t *testing.T) {
	limiter := NewLimiter(1, 200*time.Millisecond)
	limiter.Allow()

	if limiter.WaitWithTimeout(50 * time.Millisecond) {
		t.Error("short timeout should not acquire a token")
	}

	if !limiter.WaitWithTimeout(300 * time.Millisecond) {
		t.Error("long timeout should acquire a token")
	}
}

func TestLimiterConcurrent(t *testing.T) {
	limiter := NewLimiter(5, 10*time.Millisecond)

	const goroutines = 10
	const perGoroutine = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if limiter.Allow() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if allowed == 0 {
		t.Error("no requests were allowed")
	}
	if allowed >= goroutines*perGoroutine {
		t.Error("all requests were allowed, limiting had no effect")
	}
}

func TestLimiterSlowRefill(t *testing.T) {
	limiter := NewLimiter(2, time.Hour)
	limiter.Allow()
	limiter.Allow()

	time.Sleep(10 * time.Millisecond)
	if limiter.Allow() {
		t.Error("hour-scale limiter should not have refilled yet")
	}
}
