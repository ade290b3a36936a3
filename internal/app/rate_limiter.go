package app

import (
	"fmt"
	"sync"
	"time"
)

// rateHighWater is the map size past which Check prunes stale windows
// before admitting a new identity token.
const rateHighWater = 10000

// RateLimitError reports a rejected request and the time remaining until
// the caller's window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter admits or rejects requests per identity token using a
// fixed window. It keeps one window per token ever seen, pruned
// opportunistically once the map grows past a high-water mark.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a limiter admitting limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check admits the request or returns a *RateLimitError carrying the
// remaining window time. A token's first request after its window
// elapses starts a fresh window at count 1 regardless of how many
// rejections preceded it.
func (l *RateLimiter) Check(token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[token]
	if !ok || now.Sub(w.start) >= l.window {
		if !ok && len(l.windows) >= rateHighWater {
			l.prune(now)
		}
		l.windows[token] = &rateWindow{count: 1, start: now}
		return nil
	}
	if w.count >= l.limit {
		return &RateLimitError{RetryAfter: l.window - now.Sub(w.start)}
	}
	w.count++
	return nil
}

// prune drops windows untouched for more than twice the window length.
// Caller holds mu.
func (l *RateLimiter) prune(now time.Time) {
	for token, w := range l.windows {
		if now.Sub(w.start) > 2*l.window {
			delete(l.windows, token)
		}
	}
}
