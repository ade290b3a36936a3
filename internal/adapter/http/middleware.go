package adapthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"microblog/internal/app"
	"microblog/internal/domain"
)

// SessionTokenHeader carries the opaque session token; absence means the
// request is unauthenticated.
const SessionTokenHeader = "X-Session-Token"

type contextKey string

const userContextKey contextKey = "user"

// userFrom returns the authenticated user stored by authMiddleware.
func userFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}

// rateLimitMiddleware rejects callers that exceed their per-token
// window. Requests without a session token bypass the limiter; there is
// no IP-based fallback.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionTokenHeader)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.limiter.Check(token); err != nil {
			var rl *app.RateLimitError
			if errors.As(err, &rl) {
				secs := int(rl.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error": fmt.Sprintf("rate limit exceeded, retry in %s", rl.RetryAfter.Round(time.Second)),
				})
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the session token and stores the resolved
// user on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionTokenHeader)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "valid": false})
			return
		}

		user, err := s.auth.ValidateSession(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, app.ErrSessionNotFound),
			errors.Is(err, app.ErrSessionExpired),
			errors.Is(err, app.ErrUserVanished):
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "valid": false})
			return
		default:
			s.logger.Error("session validation failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware records method, path, status, and latency.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
