package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestCleanupScheduler_SweepsUntilCancelled(t *testing.T) {
	var sweeps int64
	repo := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context, before time.Time) (int64, error) {
			atomic.AddInt64(&sweeps, 1)
			return 1, nil
		},
	}
	m := NewSessionManager(repo, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	NewCleanupScheduler(m, 10*time.Millisecond, logger).Run(ctx)

	if n := atomic.LoadInt64(&sweeps); n < 2 {
		t.Errorf("expected an immediate sweep plus ticks, got %d", n)
	}
}

func TestCleanupScheduler_SurvivesStorageFailure(t *testing.T) {
	var sweeps int64
	repo := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context, before time.Time) (int64, error) {
			atomic.AddInt64(&sweeps, 1)
			return 0, errors.New("connection refused")
		},
	}
	m := NewSessionManager(repo, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// A failing sweep must not stop the scheduler.
	NewCleanupScheduler(m, 10*time.Millisecond, logger).Run(ctx)

	if n := atomic.LoadInt64(&sweeps); n < 2 {
		t.Errorf("expected the scheduler to keep sweeping after failures, got %d", n)
	}
}
