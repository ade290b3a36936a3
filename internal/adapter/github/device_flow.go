// Package github implements the OAuth 2.0 Device Authorization Grant
// against GitHub as the single configured identity provider.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"microblog/internal/domain"

	"golang.org/x/oauth2"
)

const (
	defaultDeviceAuthURL = "https://github.com/login/device/code"
	defaultTokenURL      = "https://github.com/login/oauth/access_token"
	defaultUserAPIURL    = "https://api.github.com/user"

	requestTimeout = 30 * time.Second
)

// Client is a public OAuth client (client id only, no secret) for
// GitHub's device flow. Every operation is a single bounded network
// call; state-machine progression belongs to the caller.
type Client struct {
	clientID      string
	deviceAuthURL string
	tokenURL      string
	userAPIURL    string
	httpClient    *http.Client
}

var _ domain.DeviceFlowProvider = (*Client)(nil)

// NewClient creates a device-flow client for the given OAuth client id.
func NewClient(clientID string) *Client {
	return &Client{
		clientID:      clientID,
		deviceAuthURL: defaultDeviceAuthURL,
		tokenURL:      defaultTokenURL,
		userAPIURL:    defaultUserAPIURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.clientID,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: c.deviceAuthURL,
			TokenURL:      c.tokenURL,
		},
		Scopes: []string{"read:user"},
	}
}

// RequestDeviceCode asks the provider to start a device authorization.
func (c *Client) RequestDeviceCode(ctx context.Context) (*domain.DeviceGrant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	resp, err := c.oauthConfig().DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device code request: %w", err)
	}
	interval := int(resp.Interval)
	if interval <= 0 {
		interval = 5
	}
	expiresIn := int(time.Until(resp.Expiry).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &domain.DeviceGrant{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		ExpiresIn:       expiresIn,
		Interval:        interval,
	}, nil
}

// PollOnce asks the token endpoint whether the user has authorized the
// device code yet. It never loops; protocol "errors" that mean keep
// waiting are mapped onto PollResult states, and only transport or
// unrecognized protocol failures become Go errors.
func (c *Client) PollOnce(ctx context.Context, deviceCode string) (*domain.PollResult, error) {
	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("token poll: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token poll: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("token poll: read body: %w", err)
	}

	// GitHub reports protocol outcomes with HTTP 200, the RFC with 400;
	// the JSON error field is authoritative either way.
	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		Interval    int    `json:"interval"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("token poll: status %d: malformed response", resp.StatusCode)
	}

	switch payload.Error {
	case "":
	case "authorization_pending":
		return &domain.PollResult{Status: domain.PollPending}, nil
	case "slow_down":
		return &domain.PollResult{Status: domain.PollSlowDown, Interval: payload.Interval}, nil
	case "expired_token":
		return &domain.PollResult{Status: domain.PollExpired}, nil
	case "access_denied":
		return &domain.PollResult{Status: domain.PollDenied}, nil
	default:
		return nil, fmt.Errorf("token poll: provider error %q", payload.Error)
	}

	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token poll: provider returned no access token")
	}
	return &domain.PollResult{Status: domain.PollAuthorized, AccessToken: payload.AccessToken}, nil
}

// FetchIdentity retrieves the authorized user's profile from the
// provider's user API.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userAPIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("identity fetch: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity fetch: status %d", resp.StatusCode)
	}

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("identity fetch: decode: %w", err)
	}
	if payload.ID == 0 || payload.Login == "" {
		return nil, fmt.Errorf("identity fetch: incomplete profile")
	}
	return &domain.ExternalIdentity{
		ProviderUserID: strconv.FormatInt(payload.ID, 10),
		Login:          payload.Login,
		DisplayName:    payload.Name,
	}, nil
}
