package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client performs the three network calls of the GitHub OAuth device flow.
// A Client is constructed fresh for each authorization attempt and owns the
// access token it obtains.
type Client struct {
	httpClient   HTTPClient
	clientID     string
	clientSecret string

	// Retained by Poll on success; never mutated afterwards.
	accessToken string

	// Endpoint overrides and sleep hook, for tests.
	deviceCodeURL string
	tokenURL      string
	identityURL   string
	sleep         func(ctx context.Context, d time.Duration) error
}

// Ensure Client implements Provider
var _ Provider = (*Client)(nil)

// NewClient creates a device flow client for the given application
// registration. The client secret is unused by the device grant itself but
// kept for parity with confidential client setups.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		clientID:      clientID,
		clientSecret:  clientSecret,
		deviceCodeURL: DeviceCodeEndpoint,
		tokenURL:      TokenEndpoint,
		identityURL:   IdentityEndpoint,
		sleep:         sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AccessToken returns the token obtained by Poll, or empty if none yet.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// Initiate requests a device code from GitHub. A single failure here is
// terminal for the attempt; there is no retry.
func (c *Client) Initiate(ctx context.Context) (*DeviceAuthResponse, error) {
	data := url.Values{
		"client_id": {c.clientID},
		"scope":     {OAuthScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deviceCodeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &InitiationError{Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &InitiationError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InitiationError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &InitiationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var authResp DeviceAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return nil, &InitiationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// All four fields are required; a 200 missing any of them is malformed.
	if authResp.DeviceCode == "" || authResp.UserCode == "" ||
		authResp.VerificationURI == "" || authResp.Interval <= 0 || authResp.ExpiresIn <= 0 {
		return nil, &InitiationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	log.WithFields(log.Fields{
		"user_code":  authResp.UserCode,
		"expires_in": authResp.ExpiresIn,
		"interval":   authResp.Interval,
	}).Debug("device flow initiated")

	return &authResp, nil
}

// Poll repeatedly exchanges the device code for an access token until the
// user approves, the provider rejects, or the attempt budget runs out. The
// budget is floor(window/interval) requests with a real blocking sleep of
// one interval between them.
func (c *Client) Poll(ctx context.Context, deviceCode string, interval, window time.Duration) (string, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if window <= 0 {
		window = DefaultPollWindow
	}
	maxAttempts := int(window / interval)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		tokenResp, status, err := c.requestToken(ctx, deviceCode)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Flaky connectivity is absorbed as pending rather than
			// surfaced; it consumes an attempt like any other iteration.
			log.WithError(err).WithField("attempt", attempt+1).Debug("token poll failed, retrying")
			if err := c.sleep(ctx, interval); err != nil {
				return "", err
			}
			continue
		}

		if status != http.StatusOK {
			log.WithFields(log.Fields{"status": status, "attempt": attempt + 1}).
				Debug("transient token endpoint status, retrying")
			if err := c.sleep(ctx, interval); err != nil {
				return "", err
			}
			continue
		}

		// access_token wins over any error field in a malformed response.
		if tokenResp.AccessToken != "" {
			c.accessToken = tokenResp.AccessToken
			return c.accessToken, nil
		}

		switch tokenResp.ErrorCode {
		case "authorization_pending":
			if err := c.sleep(ctx, interval); err != nil {
				return "", err
			}
		case "expired_token":
			return "", ErrDeviceCodeExpired
		case "access_denied":
			return "", ErrAuthorizationDenied
		default:
			return "", &ProtocolError{Code: tokenResp.ErrorCode, Description: tokenResp.ErrorDescription}
		}
	}

	return "", ErrAuthorizationTimeout
}

// requestToken makes a single token exchange request
func (c *Client) requestToken(ctx context.Context, deviceCode string) (*TokenResponse, int, error) {
	data := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {GrantType},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse token response: %w", err)
	}

	return &tokenResp, resp.StatusCode, nil
}

// FetchIdentity looks up the authenticated user. Identity is cosmetic
// enrichment of the authorization outcome: with no token, a failed request,
// or a non-200 status it returns nil rather than an error.
func (c *Client) FetchIdentity(ctx context.Context) *Identity {
	if c.accessToken == "" {
		return nil
	}
	return c.Validate(ctx, c.accessToken)
}

// Validate checks a token against the identity endpoint and returns the
// user it belongs to, or nil if the token is missing or rejected.
func (c *Client) Validate(ctx context.Context, token string) *Identity {
	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.identityURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil
	}

	if scopes := resp.Header.Get("X-OAuth-Scopes"); scopes != "" {
		identity.Scopes = strings.Split(scopes, ", ")
	}
	identity.RateRemaining = resp.Header.Get("X-RateLimit-Remaining")
	identity.RateLimit = resp.Header.Get("X-RateLimit-Limit")

	return &identity
}
