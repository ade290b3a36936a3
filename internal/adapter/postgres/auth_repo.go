// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"microblog/internal/domain"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for a unique constraint.
const uniqueViolation = "23505"

// GetByID retrieves a user by id.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, username, display_name, github_id, created_at FROM users WHERE id = $1",
		id,
	))
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, username, display_name, github_id, created_at FROM users WHERE username = $1",
		username,
	))
}

// GetByGitHubID retrieves a user by provider user id.
func (d *DB) GetByGitHubID(ctx context.Context, githubID string) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, username, display_name, github_id, created_at FROM users WHERE github_id = $1",
		githubID,
	))
}

// Create creates a new user. An empty githubID is stored as NULL so the
// unique constraint ignores internal identities.
func (d *DB) Create(ctx context.Context, username, displayName, githubID string) (*domain.User, error) {
	var gid sql.NullString
	if githubID != "" {
		gid = sql.NullString{String: githubID, Valid: true}
	}
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, display_name, github_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id, username, display_name, github_id, created_at",
		username, displayName, gid, time.Now(),
	))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *DB) scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var gid sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &gid, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.GitHubID = gid.String
	return &u, nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.UserRepository = (*DB)(nil)

// Create inserts a new session record. A primary-key collision on the
// token surfaces as domain.ErrTokenExists so the caller can retry with a
// fresh token.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, createdAt, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)",
		token, userID, createdAt, expiresAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrTokenExists
	}
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all sessions expiring before the given instant
// and reports how many were removed.
func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
