package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microblog/internal/adapter/github"
	adapthttp "microblog/internal/adapter/http"
	"microblog/internal/adapter/postgres"
	"microblog/internal/app"
	"microblog/internal/config"
	"microblog/internal/domain"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db open", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	sessions := app.NewSessionManager(postgres.NewSessionRepo(db), cfg.SessionTTL)
	codes := app.NewDeviceCodeStore(cfg.DeviceCodeTTL)

	var provider domain.DeviceFlowProvider
	if cfg.GitHubClientID != "" {
		provider = github.NewClient(cfg.GitHubClientID)
	}

	authSvc := app.NewAuthService(db, sessions, codes, provider, cfg.DeviceCodeTTL, logger)
	limiter := app.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.NewCleanupScheduler(sessions, cfg.CleanupInterval, logger).Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: adapthttp.New(authSvc, limiter, logger, provider != nil).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Addr, "device_flow", provider != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", "err", err)
		os.Exit(1)
	}
}
