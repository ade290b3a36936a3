// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"log/slog"
	"net/http"

	"microblog/internal/app"
)

// Server is the driving HTTP adapter that routes requests to the
// authentication facade.
type Server struct {
	auth              *app.AuthService
	limiter           *app.RateLimiter
	logger            *slog.Logger
	deviceFlowEnabled bool
}

// New creates a Server wired to the given services.
func New(auth *app.AuthService, limiter *app.RateLimiter, logger *slog.Logger, deviceFlowEnabled bool) *Server {
	return &Server{
		auth:              auth,
		limiter:           limiter,
		logger:            logger,
		deviceFlowEnabled: deviceFlowEnabled,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/device/init", s.handleDeviceInit)
	api.HandleFunc("/auth/device/poll", s.handleDevicePoll)
	api.Handle("/auth/session", s.authMiddleware(http.HandlerFunc(s.handleSession)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", s.rateLimitMiddleware(api)))

	return s.loggingMiddleware(root)
}
