package adapthttp

import (
	"errors"
	"net/http"

	"microblog/internal/app"
	"microblog/internal/domain"
)

type userJSON struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

func toUserJSON(u *domain.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := parseJSON(r, &req); err != nil || req.Username == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Username)
	if errors.Is(err, app.ErrUserNotFound) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unknown user"})
		return
	}
	if err != nil {
		s.logger.Error("login failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          toUserJSON(user),
		"session_token": token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if token := r.Header.Get(SessionTokenHeader); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			s.logger.Error("logout failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleDeviceInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.deviceFlowEnabled {
		http.Error(w, "device login disabled", http.StatusNotFound)
		return
	}

	grant, err := s.auth.BeginDeviceLogin(r.Context())
	if err != nil {
		http.Error(w, "authorization provider unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_code":      grant.DeviceCode,
		"user_code":        grant.UserCode,
		"verification_uri": grant.VerificationURI,
		"expires_in":       grant.ExpiresIn,
		"interval":         grant.Interval,
	})
}

func (s *Server) handleDevicePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.deviceFlowEnabled {
		http.Error(w, "device login disabled", http.StatusNotFound)
		return
	}

	var req struct {
		DeviceCode string `json:"device_code"`
	}
	if err := parseJSON(r, &req); err != nil || req.DeviceCode == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, token, err := s.auth.PollDeviceLogin(r.Context(), req.DeviceCode)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrAuthorizationPending):
		// Retryable: the caller should keep polling on its interval.
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "authorization_pending"})
		return
	case errors.Is(err, app.ErrAuthorizationDenied):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "access_denied"})
		return
	case errors.Is(err, app.ErrDeviceCodeExpired):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "expired_token"})
		return
	case errors.Is(err, app.ErrProvider):
		http.Error(w, "authorization provider unavailable", http.StatusBadGateway)
		return
	default:
		s.logger.Error("device poll failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          toUserJSON(user),
		"session_token": token,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  toUserJSON(user),
		"valid": true,
	})
}
