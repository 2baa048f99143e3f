package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MockHTTPClient implements HTTPClient for testing with call recording
type MockHTTPClient struct {
	DoFunc  func(req *http.Request) (*http.Response, error)
	DoCalls []*http.Request
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.DoCalls = append(m.DoCalls, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, fmt.Errorf("no DoFunc configured")
}

// MockBrowserOpener implements BrowserOpener for testing with call recording
type MockBrowserOpener struct {
	OpenURLFunc  func(url string) error
	OpenURLCalls []string
}

func (m *MockBrowserOpener) OpenURL(url string) error {
	m.OpenURLCalls = append(m.OpenURLCalls, url)
	if m.OpenURLFunc != nil {
		return m.OpenURLFunc(url)
	}
	return nil
}

// MockTokenWriter implements TokenWriter for testing with call recording
type MockTokenWriter struct {
	Result    bool
	SaveCalls []string
}

func (m *MockTokenWriter) Save(token string) bool {
	m.SaveCalls = append(m.SaveCalls, token)
	return m.Result
}

// MockProvider implements Provider for testing with call recording
type MockProvider struct {
	InitiateFunc  func(ctx context.Context) (*DeviceAuthResponse, error)
	InitiateCalls int

	PollFunc  func(ctx context.Context, deviceCode string, interval, window time.Duration) (string, error)
	PollCalls []PollCall

	FetchIdentityFunc func(ctx context.Context) *Identity

	ValidateFunc  func(ctx context.Context, token string) *Identity
	ValidateCalls []string
}

// PollCall records the arguments of one Poll invocation
type PollCall struct {
	DeviceCode string
	Interval   time.Duration
	Window     time.Duration
}

func (m *MockProvider) Initiate(ctx context.Context) (*DeviceAuthResponse, error) {
	m.InitiateCalls++
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx)
	}
	return nil, fmt.Errorf("no InitiateFunc configured")
}

func (m *MockProvider) Poll(ctx context.Context, deviceCode string, interval, window time.Duration) (string, error) {
	m.PollCalls = append(m.PollCalls, PollCall{DeviceCode: deviceCode, Interval: interval, Window: window})
	if m.PollFunc != nil {
		return m.PollFunc(ctx, deviceCode, interval, window)
	}
	return "", fmt.Errorf("no PollFunc configured")
}

func (m *MockProvider) FetchIdentity(ctx context.Context) *Identity {
	if m.FetchIdentityFunc != nil {
		return m.FetchIdentityFunc(ctx)
	}
	return nil
}

func (m *MockProvider) Validate(ctx context.Context, token string) *Identity {
	m.ValidateCalls = append(m.ValidateCalls, token)
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token)
	}
	return nil
}

// TestHelpers provides shared fixtures
type TestHelpers struct{}

func NewTestHelpers() *TestHelpers {
	return &TestHelpers{}
}

// DeviceAuthResponse returns a valid device authorization fixture
func (h *TestHelpers) DeviceAuthResponse() *DeviceAuthResponse {
	return &DeviceAuthResponse{
		DeviceCode:      "d1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/device",
		Interval:        5,
		ExpiresIn:       900,
	}
}

// Identity returns a full identity fixture
func (h *TestHelpers) Identity() *Identity {
	return &Identity{
		Login:         "octocat",
		Name:          "The Octocat",
		Email:         "octocat@github.com",
		PublicRepos:   8,
		Followers:     4000,
		Scopes:        []string{"repo", "read:user"},
		RateRemaining: "4999",
		RateLimit:     "5000",
	}
}

// jsonResponse builds an HTTP response with a JSON body
func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// newTestClient returns a Client wired to a mock HTTP client and an
// instant, recorded sleep.
func newTestClient(httpClient *MockHTTPClient) (*Client, *[]time.Duration) {
	c := NewClient("test-client-id", "test-secret")
	c.httpClient = httpClient
	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return c, sleeps
}
