package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiter_WindowCycle(t *testing.T) {
	t0 := time.Now()
	l := NewRateLimiter(3, 60*time.Second)
	l.now = func() time.Time { return t0 }

	for i := 1; i <= 3; i++ {
		if err := l.Check("tok"); err != nil {
			t.Fatalf("call %d should be admitted: %v", i, err)
		}
	}

	err := l.Check("tok")
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("call 4 should be rejected with RateLimitError, got %v", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > 60*time.Second {
		t.Errorf("retry-after out of range: %v", rl.RetryAfter)
	}

	// A fresh window starts at count 1 regardless of prior rejections.
	l.now = func() time.Time { return t0.Add(61 * time.Second) }
	if err := l.Check("tok"); err != nil {
		t.Fatalf("call after window elapse should be admitted: %v", err)
	}
	if err := l.Check("tok"); err != nil {
		t.Fatalf("second call in fresh window should be admitted: %v", err)
	}
}

func TestRateLimiter_TokensAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	if err := l.Check("a"); err != nil {
		t.Fatalf("first token: %v", err)
	}
	if err := l.Check("b"); err != nil {
		t.Fatalf("a different token must not share the window: %v", err)
	}
	if err := l.Check("a"); err == nil {
		t.Fatal("token a should be over its ceiling")
	}
}

func TestRateLimiter_PruneDropsStaleWindows(t *testing.T) {
	t0 := time.Now()
	l := NewRateLimiter(10, time.Minute)
	l.windows["stale"] = &rateWindow{count: 1, start: t0.Add(-3 * time.Minute)}
	l.windows["fresh"] = &rateWindow{count: 1, start: t0.Add(-90 * time.Second)}

	l.prune(t0)

	if _, ok := l.windows["stale"]; ok {
		t.Error("window idle past twice the length should be pruned")
	}
	if _, ok := l.windows["fresh"]; !ok {
		t.Error("window inside twice the length should survive")
	}
}

func TestRateLimiter_ConcurrentChecksRespectCeiling(t *testing.T) {
	t0 := time.Now()
	l := NewRateLimiter(50, time.Minute)
	l.now = func() time.Time { return t0 }

	var admitted int64
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if err := l.Check("tok"); err == nil {
					atomic.AddInt64(&admitted, 1)
				}
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Errorf("expected exactly 50 admissions, got %d", admitted)
	}
}
