package auth

import (
	"strings"
	"time"
)

// DeviceAuthResponse represents the response from the device code endpoint
type DeviceAuthResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// TokenResponse represents the response from the token endpoint. GitHub
// returns errors with HTTP 200, so the error fields live on the same struct.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Identity holds the GitHub user profile fetched after authorization,
// plus the scope and rate-limit metadata reported in response headers.
type Identity struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`

	Scopes        []string `json:"-"`
	RateRemaining string   `json:"-"`
	RateLimit     string   `json:"-"`
}

// DisplayName returns the login with the full name appended when known.
func (i *Identity) DisplayName() string {
	if i.Name == "" {
		return i.Login
	}
	return i.Login + " (" + i.Name + ")"
}

// ScopeList renders the granted scopes for display.
func (i *Identity) ScopeList() string {
	if len(i.Scopes) == 0 {
		return "None"
	}
	return strings.Join(i.Scopes, ", ")
}

// Credentials represents stored authentication credentials
type Credentials struct {
	AccessToken string     `json:"access_token"`
	Login       string     `json:"login,omitempty"`
	ObtainedAt  *time.Time `json:"obtained_at,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
}

// Constants for the GitHub OAuth device flow
const (
	// GitHub device flow endpoints
	DeviceCodeEndpoint = "https://github.com/login/device/code"
	TokenEndpoint      = "https://github.com/login/oauth/access_token"
	IdentityEndpoint   = "https://api.github.com/user"

	// Scopes required by the downstream GitHub tool server
	OAuthScope = "repo read:user user:email read:org write:repo_hook"

	GrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// Maximum time Poll keeps waiting for the user to approve
	DefaultPollWindow = 10 * time.Minute

	// Environment variable consumed by the downstream tool layer
	EnvTokenKey = "GITHUB_PERSONAL_ACCESS_TOKEN"

	// Keyring service name
	KeyringService = "agentbridge"
	// Keyring username
	KeyringUsername = "github"
)
