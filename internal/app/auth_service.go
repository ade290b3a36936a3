// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"microblog/internal/domain"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserVanished indicates a valid session referencing a user record
	// that has since disappeared.
	ErrUserVanished = errors.New("user record vanished")
	// ErrDeviceCodeExpired indicates a device code that is unknown, already
	// consumed, or past its fifteen-minute window.
	ErrDeviceCodeExpired = errors.New("device code expired or unknown")
	// ErrAuthorizationPending is the retryable steady state of an
	// in-progress device flow. It is never a failure and must not be
	// logged as one.
	ErrAuthorizationPending = errors.New("authorization pending")
	// ErrSlowDown is ErrAuthorizationPending with a request from the
	// provider to space polls further apart.
	ErrSlowDown = fmt.Errorf("%w: provider asked to slow down", ErrAuthorizationPending)
	// ErrAuthorizationDenied indicates the user declined the authorization.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrProvider indicates a network or protocol failure talking to the
	// external authorization server.
	ErrProvider = errors.New("authorization provider error")
	// ErrStorage indicates a persistence-layer failure. Fatal to the
	// request, never to the process.
	ErrStorage = errors.New("storage failure")
)

// defaultPollInterval is used when the provider suggests no interval.
const defaultPollInterval = 5 * time.Second

// AuthService composes session management, the device flow, and user
// resolution into the authentication entry points the API serves.
type AuthService struct {
	users       domain.UserRepository
	sessions    *SessionManager
	codes       *DeviceCodeStore
	provider    domain.DeviceFlowProvider
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewAuthService creates the authentication facade. pollTimeout caps the
// caller-side polling loop and should match the device-code TTL.
func NewAuthService(users domain.UserRepository, sessions *SessionManager, codes *DeviceCodeStore, provider domain.DeviceFlowProvider, pollTimeout time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		codes:       codes,
		provider:    provider,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Login resolves an internal identity by username and opens a session.
func (s *AuthService) Login(ctx context.Context, username string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("%w: get user: %v", ErrStorage, err)
	}
	if user == nil {
		return nil, "", ErrUserNotFound
	}
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout invalidates a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// BeginDeviceLogin starts a device authorization with the provider and
// registers the resulting code for later polling.
func (s *AuthService) BeginDeviceLogin(ctx context.Context) (*domain.DeviceGrant, error) {
	grant, err := s.provider.RequestDeviceCode(ctx)
	if err != nil {
		s.logger.Error("device code request failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	s.codes.Register(grant.DeviceCode)
	return grant, nil
}

// PollDeviceLogin performs one poll step for an in-flight device
// authorization. Liveness is checked before any network call so dead
// codes never reach the provider. On authorization it fetches the
// external identity, resolves or creates the internal user, opens a
// session, and consumes the device code.
func (s *AuthService) PollDeviceLogin(ctx context.Context, deviceCode string) (*domain.User, string, error) {
	if !s.codes.IsLive(deviceCode) {
		return nil, "", ErrDeviceCodeExpired
	}

	res, err := s.provider.PollOnce(ctx, deviceCode)
	if err != nil {
		s.codes.Remove(deviceCode)
		s.logger.Error("device flow poll failed", "err", err)
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	switch res.Status {
	case domain.PollPending:
		return nil, "", ErrAuthorizationPending
	case domain.PollSlowDown:
		s.logger.Info("provider requested slower polling", "interval", res.Interval)
		return nil, "", ErrSlowDown
	case domain.PollDenied:
		s.codes.Remove(deviceCode)
		return nil, "", ErrAuthorizationDenied
	case domain.PollExpired:
		s.codes.Remove(deviceCode)
		return nil, "", ErrDeviceCodeExpired
	}

	ident, err := s.provider.FetchIdentity(ctx, res.AccessToken)
	if err != nil {
		s.codes.Remove(deviceCode)
		s.logger.Error("identity fetch failed", "err", err)
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	user, err := s.resolveExternal(ctx, ident)
	if err != nil {
		s.codes.Remove(deviceCode)
		return nil, "", err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.codes.Remove(deviceCode)
		return nil, "", err
	}

	s.codes.Remove(deviceCode)
	return user, token, nil
}

// AwaitDeviceLogin polls on the caller's behalf until the flow resolves,
// sleeping the provider-suggested interval between polls. The wall clock
// is capped at the poll timeout regardless of how many polls occur. A
// slow_down answer widens the interval by five seconds.
func (s *AuthService) AwaitDeviceLogin(ctx context.Context, deviceCode string, interval time.Duration) (*domain.User, string, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ctx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	for {
		user, token, err := s.PollDeviceLogin(ctx, deviceCode)
		if !errors.Is(err, ErrAuthorizationPending) {
			return user, token, err
		}
		if errors.Is(err, ErrSlowDown) {
			interval += 5 * time.Second
		}
		select {
		case <-ctx.Done():
			return nil, "", ErrDeviceCodeExpired
		case <-time.After(interval):
		}
	}
}

// ValidateSession resolves the user behind a session token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrStorage, err)
	}
	if user == nil {
		return nil, ErrUserVanished
	}
	return user, nil
}

// resolveExternal maps a provider identity onto an internal user,
// creating one on first sight. A create that loses a race to a
// concurrent poller falls back to the winner's record.
func (s *AuthService) resolveExternal(ctx context.Context, ident *domain.ExternalIdentity) (*domain.User, error) {
	user, err := s.users.GetByGitHubID(ctx, ident.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: get user by provider id: %v", ErrStorage, err)
	}
	if user != nil {
		return user, nil
	}

	name := ident.DisplayName
	if name == "" {
		name = ident.Login
	}
	user, err = s.users.Create(ctx, ident.Login, name, ident.ProviderUserID)
	if err != nil {
		if existing, getErr := s.users.GetByGitHubID(ctx, ident.ProviderUserID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrStorage, err)
	}
	return user, nil
}
