package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
)

// SessionConfig contains configuration for the authorization session
type SessionConfig struct {
	// GitHub OAuth application credentials
	ClientID     string
	ClientSecret string
	// Don't open browser automatically
	NoBrowser bool
	// Maximum time Complete keeps polling; defaults to DefaultPollWindow
	PollWindow time.Duration
}

// attempt is the single slot of in-flight device flow state. Starting a new
// attempt replaces the slot wholesale, orphaning any previous device code.
type attempt struct {
	id         string
	provider   Provider
	deviceCode string
	userCode   string
	interval   time.Duration
	expiresIn  int
}

// Session tracks at most one authorization attempt and drives it from
// initiation through token persistence. Its three operations form the
// outward-facing tool boundary: they always return displayable text and
// never a Go error, converting every internal failure into a message.
//
// The session assumes a single caller driving one attempt to completion
// before starting another; the slot is a plain assignment with no locking.
type Session struct {
	newProvider func() Provider
	store       CredentialStore
	tokens      TokenWriter
	browser     BrowserOpener
	config      *SessionConfig

	current *attempt
}

// defaultBrowserOpener implements BrowserOpener using the browser package
type defaultBrowserOpener struct{}

func (d *defaultBrowserOpener) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// NewSession creates an authorization session backed by real collaborators.
func NewSession(store CredentialStore, tokens TokenWriter, config *SessionConfig) *Session {
	if config == nil {
		config = &SessionConfig{}
	}
	if config.PollWindow == 0 {
		config.PollWindow = DefaultPollWindow
	}

	return &Session{
		newProvider: func() Provider {
			return NewClient(config.ClientID, config.ClientSecret)
		},
		store:   store,
		tokens:  tokens,
		browser: &defaultBrowserOpener{},
		config:  config,
	}
}

// NewSessionWithProvider creates a session with an injected provider
// factory and browser opener. This is primarily for testing.
func NewSessionWithProvider(store CredentialStore, tokens TokenWriter, newProvider func() Provider, opener BrowserOpener, config *SessionConfig) *Session {
	if config == nil {
		config = &SessionConfig{PollWindow: DefaultPollWindow}
	}
	if config.PollWindow == 0 {
		config.PollWindow = DefaultPollWindow
	}

	return &Session{
		newProvider: newProvider,
		store:       store,
		tokens:      tokens,
		browser:     opener,
		config:      config,
	}
}

// Active reports whether an authorization attempt is currently tracked.
func (s *Session) Active() bool {
	return s.current != nil
}

// UserCode returns the pending attempt's user code, if any.
func (s *Session) UserCode() string {
	if s.current == nil {
		return ""
	}
	return s.current.userCode
}

// Start begins a new authorization attempt. Any previous attempt is
// superseded. The returned string is always displayable; initiation
// failures are rendered, not raised.
func (s *Session) Start(ctx context.Context) string {
	provider := s.newProvider()

	resp, err := provider.Initiate(ctx)
	if err != nil {
		log.WithError(err).Error("device flow initiation failed")
		return renderError("Could not start GitHub authorization", err)
	}

	s.current = &attempt{
		id:         uuid.NewString(),
		provider:   provider,
		deviceCode: resp.DeviceCode,
		userCode:   resp.UserCode,
		interval:   time.Duration(resp.Interval) * time.Second,
		expiresIn:  resp.ExpiresIn,
	}

	log.WithFields(log.Fields{
		"attempt":  s.current.id,
		"interval": resp.Interval,
	}).Info("authorization attempt started")

	if !s.config.NoBrowser && s.browser != nil {
		if err := s.browser.OpenURL(resp.VerificationURI); err != nil {
			log.WithError(err).Warn("could not open browser")
		}
	}

	return renderInstructions(resp)
}

// Complete resumes the pending attempt: polls for the token, publishes it to
// the process environment, fetches the user identity best-effort, and
// persists the token. Always returns displayable text.
func (s *Session) Complete(ctx context.Context) string {
	if s.current == nil {
		return renderError("No authorization flow found", ErrNoActiveSession) +
			"\nRun the start operation first, approve the request at " +
			"https://github.com/device, then complete again."
	}

	att := s.current
	log.WithField("attempt", att.id).Info("polling for access token")

	token, err := att.provider.Poll(ctx, att.deviceCode, att.interval, s.config.PollWindow)
	if err != nil {
		log.WithError(err).WithField("attempt", att.id).Error("authorization failed")
		return renderError("GitHub authorization failed", err)
	}

	// The downstream tool layer reads the token from the environment.
	if err := os.Setenv(EnvTokenKey, token); err != nil {
		log.WithError(err).Warn("could not set token environment variable")
	}

	identity := att.provider.FetchIdentity(ctx)

	if s.store != nil {
		now := time.Now()
		creds := &Credentials{
			AccessToken: token,
			ObtainedAt:  &now,
			ClientID:    s.config.ClientID,
		}
		if identity != nil {
			creds.Login = identity.Login
		}
		if err := s.store.Save(creds); err != nil {
			log.WithError(err).Warn("could not store credentials in keyring")
		}
	}

	saved := false
	if s.tokens != nil {
		saved = s.tokens.Save(token)
	}

	s.current = nil
	log.WithField("attempt", att.id).Info("authorization complete")

	return renderSuccess(identity, saved)
}

// Status reports the current authorization state: whether a token is
// configured and whether GitHub still accepts it. Always returns
// displayable text.
func (s *Session) Status(ctx context.Context) string {
	token := os.Getenv(EnvTokenKey)
	if token == "" && s.store != nil {
		if creds, err := s.store.Load(); err == nil && creds != nil {
			token = creds.AccessToken
		}
	}

	if token == "" {
		return strings.Join([]string{
			"GitHub authorization: not configured",
			"",
			"To authorize:",
			"  1. Run the start operation",
			"  2. Visit https://github.com/device and enter the code",
			"  3. Run the complete operation",
		}, "\n")
	}

	identity := s.newProvider().Validate(ctx, token)
	if identity == nil {
		return "GitHub authorization: token invalid or revoked. Please re-authorize."
	}

	return renderStatus(identity)
}

// renderInstructions formats the user-facing authorization instructions.
func renderInstructions(resp *DeviceAuthResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GitHub authorization started.\n\n")
	fmt.Fprintf(&b, "Your one-time code: %s\n\n", resp.UserCode)
	fmt.Fprintf(&b, "1. Visit %s (browser should have opened automatically)\n", resp.VerificationURI)
	fmt.Fprintf(&b, "2. Enter the code %s and approve the request\n", resp.UserCode)
	fmt.Fprintf(&b, "3. Run the complete operation to finish\n\n")
	fmt.Fprintf(&b, "The code expires in %d minutes.", resp.ExpiresIn/60)
	return b.String()
}

// renderSuccess formats the post-authorization summary, substituting
// placeholders for any identity field GitHub declined to share.
func renderSuccess(identity *Identity, saved bool) string {
	login := "Unknown"
	email := "Private"
	repos := 0
	if identity != nil {
		login = identity.DisplayName()
		if identity.Email != "" {
			email = identity.Email
		}
		repos = identity.PublicRepos
	}

	savedNote := "no .env file found, export it manually"
	if saved {
		savedNote = "written to .env"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GitHub authorization successful.\n\n")
	fmt.Fprintf(&b, "  User:   %s\n", login)
	fmt.Fprintf(&b, "  Email:  %s\n", email)
	fmt.Fprintf(&b, "  Repos:  %d\n\n", repos)
	fmt.Fprintf(&b, "Token: active (%s)\n", savedNote)
	fmt.Fprintf(&b, "GitHub tools are now available.")
	return b.String()
}

// renderStatus formats the token status report.
func renderStatus(identity *Identity) string {
	email := identity.Email
	if email == "" {
		email = "Private"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GitHub authorization: active\n\n")
	fmt.Fprintf(&b, "  User:       %s\n", identity.DisplayName())
	fmt.Fprintf(&b, "  Email:      %s\n", email)
	fmt.Fprintf(&b, "  Repos:      %d\n", identity.PublicRepos)
	fmt.Fprintf(&b, "  Followers:  %d\n\n", identity.Followers)
	fmt.Fprintf(&b, "  Scopes:     %s\n", identity.ScopeList())
	if identity.RateLimit != "" {
		fmt.Fprintf(&b, "  Rate limit: %s/%s\n", identity.RateRemaining, identity.RateLimit)
	}
	return b.String()
}

func renderError(heading string, err error) string {
	return fmt.Sprintf("%s: %v", heading, err)
}
