// Package memory implements the domain repositories in memory for
// development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"microblog/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu            sync.Mutex
	users         []*domain.User
	sessions      map[string]*domain.Session
	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByID retrieves a user by id.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByGitHubID retrieves a user by provider user id.
func (db *DB) GetByGitHubID(ctx context.Context, githubID string) (*domain.User, error) {
	if githubID == "" {
		return nil, nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.GitHubID == githubID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, displayName, githubID string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.userIDCounter++
	u := &domain.User{
		ID:          db.userIDCounter,
		Username:    username,
		DisplayName: displayName,
		GitHubID:    githubID,
		CreatedAt:   time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// --- SessionRepository ---

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create stores a new session, rejecting duplicate tokens the way a
// primary key would.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, createdAt, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sessions[token]; ok {
		return domain.ErrTokenExists
	}
	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all sessions expiring before the given instant.
func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for token, s := range r.db.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.db.sessions, token)
			n++
		}
	}
	return n, nil
}
