package auth

import (
	"errors"
	"fmt"
)

// Terminal poll outcomes. Each maps to an explicit provider rejection or to
// the exhaustion of the attempt budget; none of them is retryable with the
// same device code.
var (
	ErrDeviceCodeExpired    = errors.New("device code expired, please start over")
	ErrAuthorizationDenied  = errors.New("authorization denied by user")
	ErrAuthorizationTimeout = errors.New("authorization timed out waiting for approval")
	ErrNoActiveSession      = errors.New("no active authorization flow")
)

// InitiationError is returned when the device code request fails. It carries
// the raw response body for diagnostics since GitHub reports configuration
// problems (bad client ID, missing scopes) only in the body text.
type InitiationError struct {
	StatusCode int
	Body       string
}

func (e *InitiationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("device authorization failed (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("device authorization failed: %s", e.Body)
}

// ProtocolError is returned when the token endpoint reports an error code
// outside the known device flow vocabulary.
type ProtocolError struct {
	Code        string
	Description string
}

func (e *ProtocolError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}
