package auth

import (
	"context"
	"net/http"
	"time"
)

// Provider defines the interface for device flow operations
type Provider interface {
	// Initiate requests a device code from the provider
	Initiate(ctx context.Context) (*DeviceAuthResponse, error)
	// Poll exchanges the device code for an access token, waiting for the
	// user to approve in the browser
	Poll(ctx context.Context, deviceCode string, interval time.Duration, window time.Duration) (string, error)
	// FetchIdentity looks up the authenticated user, best effort
	FetchIdentity(ctx context.Context) *Identity
	// Validate checks an arbitrary token against the identity endpoint
	Validate(ctx context.Context, token string) *Identity
}

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BrowserOpener defines the interface for opening URLs in a browser
type BrowserOpener interface {
	OpenURL(url string) error
}

// CredentialStore provides secure storage for authentication credentials
type CredentialStore interface {
	// Load retrieves stored credentials
	Load() (*Credentials, error)
	// Save stores credentials securely
	Save(creds *Credentials) error
	// Delete removes stored credentials
	Delete() error
	// Exists checks if credentials are stored
	Exists() bool
}

// TokenWriter persists the access token for the downstream tool layer
type TokenWriter interface {
	// Save writes the token, reporting success or failure without error detail
	Save(token string) bool
}
