package app

import (
	"context"
	"log/slog"
	"time"
)

// CleanupScheduler periodically removes expired sessions. The sweep is
// an optimization: validation rejects expired sessions on its own, so a
// failed sweep is logged and corrected by the next one.
type CleanupScheduler struct {
	sessions *SessionManager
	interval time.Duration
	logger   *slog.Logger
}

// NewCleanupScheduler creates a scheduler sweeping every interval.
func NewCleanupScheduler(sessions *SessionManager, interval time.Duration, logger *slog.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (c *CleanupScheduler) Run(ctx context.Context) {
	c.sweep(ctx)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sweep(ctx)
		}
	}
}

func (c *CleanupScheduler) sweep(ctx context.Context) {
	n, err := c.sessions.CleanupExpired(ctx)
	if err != nil {
		c.logger.Error("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		c.logger.Info("removed expired sessions", "count", n)
	}
}
