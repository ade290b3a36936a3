// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrTokenExists is returned by SessionRepository.Create when the token
// collides with an existing record.
var ErrTokenExists = errors.New("session token already exists")

// User represents an account in the system.
type User struct {
	ID          int64
	Username    string
	DisplayName string
	GitHubID    string // provider user id; empty for internal identities
	CreatedAt   time.Time
}

// Session represents an active user session.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExternalIdentity is the provider-side identity obtained when a device
// flow completes. It is never persisted as-is; it is mapped onto an
// internal User record.
type ExternalIdentity struct {
	ProviderUserID string
	Login          string
	DisplayName    string
}

// DeviceGrant is the provider's answer to a device-code request.
type DeviceGrant struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds
	Interval        int // suggested seconds between polls
}

// PollStatus enumerates the protocol outcomes of a single device-flow poll.
type PollStatus int

const (
	PollPending PollStatus = iota
	PollSlowDown
	PollAuthorized
	PollDenied
	PollExpired
)

// PollResult is the tagged outcome of one poll against the provider.
// AccessToken is set only for PollAuthorized. Interval is set when the
// provider restated its polling interval alongside slow_down.
type PollResult struct {
	Status      PollStatus
	AccessToken string
	Interval    int
}

// UserRepository defines the port for user persistence operations.
// Lookups return nil, nil when no record matches.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByGitHubID(ctx context.Context, githubID string) (*User, error)
	Create(ctx context.Context, username, displayName, githubID string) (*User, error)
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, userID int64, token string, createdAt, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DeviceFlowProvider drives the provider side of the OAuth device
// authorization grant. Each operation is a single network call; looping
// and interval timing belong to the caller.
type DeviceFlowProvider interface {
	RequestDeviceCode(ctx context.Context) (*DeviceGrant, error)
	PollOnce(ctx context.Context, deviceCode string) (*PollResult, error)
	FetchIdentity(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}
