package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"microblog/internal/domain"
)

// SessionManager issues, validates, revokes, and sweeps session records.
// It is the sole mutator of the session store.
type SessionManager struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a session manager with a fixed session TTL.
func NewSessionManager(sessions domain.SessionRepository, ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create generates a fresh token and persists a session for userID. A
// token collision in the store is retried once with a new token; any
// other failure surfaces as ErrStorage.
func (m *SessionManager) Create(ctx context.Context, userID int64) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		now := m.now()
		err = m.sessions.Create(ctx, userID, token, now, now.Add(m.ttl))
		if errors.Is(err, domain.ErrTokenExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: create session: %v", ErrStorage, err)
		}
		return token, nil
	}
	return "", fmt.Errorf("%w: session token collision persisted across retry", ErrStorage)
}

// Validate resolves a token to its user id. An expired record is deleted
// as a side effect of being discovered, so a repeat lookup reports
// ErrSessionNotFound rather than ErrSessionExpired.
func (m *SessionManager) Validate(ctx context.Context, token string) (int64, error) {
	s, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: get session: %v", ErrStorage, err)
	}
	if s == nil {
		return 0, ErrSessionNotFound
	}
	if m.now().After(s.ExpiresAt) {
		_ = m.sessions.Delete(ctx, token)
		return 0, ErrSessionExpired
	}
	return s.UserID, nil
}

// Delete removes a session. Removing a nonexistent token is not an error.
func (m *SessionManager) Delete(ctx context.Context, token string) error {
	if err := m.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrStorage, err)
	}
	return nil
}

// CleanupExpired deletes every session past its expiry in one operation
// and reports how many were removed.
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %v", ErrStorage, err)
	}
	return n, nil
}

// generateToken returns 256 bits of cryptographically secure randomness
// encoded as an opaque URL-safe string.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
