package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClient_Initiate(t *testing.T) {
	t.Run("success returns all fields", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{
					"device_code": "d1",
					"user_code": "ABCD-1234",
					"verification_uri": "https://github.com/device",
					"interval": 5,
					"expires_in": 900
				}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		resp, err := c.Initiate(context.Background())
		if err != nil {
			t.Fatalf("Initiate() error = %v", err)
		}
		if resp.DeviceCode != "d1" || resp.UserCode != "ABCD-1234" {
			t.Errorf("Initiate() = %+v, want d1/ABCD-1234", resp)
		}
		if resp.Interval != 5 || resp.ExpiresIn != 900 {
			t.Errorf("Interval/ExpiresIn = %d/%d, want 5/900", resp.Interval, resp.ExpiresIn)
		}
	})

	t.Run("sends client id and scope as form data", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				if err := req.ParseForm(); err != nil {
					t.Fatalf("ParseForm() error = %v", err)
				}
				if got := req.PostForm.Get("client_id"); got != "test-client-id" {
					t.Errorf("client_id = %v, want test-client-id", got)
				}
				if got := req.PostForm.Get("scope"); got != OAuthScope {
					t.Errorf("scope = %v, want %v", got, OAuthScope)
				}
				if got := req.Header.Get("Accept"); got != "application/json" {
					t.Errorf("Accept = %v, want application/json", got)
				}
				return jsonResponse(200, `{"device_code":"d","user_code":"u","verification_uri":"v","interval":5,"expires_in":900}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		if _, err := c.Initiate(context.Background()); err != nil {
			t.Fatalf("Initiate() error = %v", err)
		}
	})

	t.Run("non-200 fails with raw body", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(422, `{"error":"incorrect_client_credentials"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Initiate(context.Background())
		var initErr *InitiationError
		if !errors.As(err, &initErr) {
			t.Fatalf("Initiate() error = %T, want *InitiationError", err)
		}
		if initErr.StatusCode != 422 {
			t.Errorf("StatusCode = %d, want 422", initErr.StatusCode)
		}
		if !strings.Contains(initErr.Body, "incorrect_client_credentials") {
			t.Errorf("Body = %q, want raw response body", initErr.Body)
		}
	})

	t.Run("200 missing any required field fails", func(t *testing.T) {
		bodies := map[string]string{
			"device_code":      `{"user_code":"u","verification_uri":"v","interval":5,"expires_in":900}`,
			"user_code":        `{"device_code":"d","verification_uri":"v","interval":5,"expires_in":900}`,
			"verification_uri": `{"device_code":"d","user_code":"u","interval":5,"expires_in":900}`,
			"interval":         `{"device_code":"d","user_code":"u","verification_uri":"v","expires_in":900}`,
			"expires_in":       `{"device_code":"d","user_code":"u","verification_uri":"v","interval":5}`,
		}

		for missing, body := range bodies {
			t.Run("missing "+missing, func(t *testing.T) {
				httpClient := &MockHTTPClient{
					DoFunc: func(req *http.Request) (*http.Response, error) {
						return jsonResponse(200, body), nil
					},
				}
				c, _ := newTestClient(httpClient)

				resp, err := c.Initiate(context.Background())
				var initErr *InitiationError
				if !errors.As(err, &initErr) {
					t.Fatalf("Initiate() error = %T, want *InitiationError", err)
				}
				if resp != nil {
					t.Errorf("Initiate() = %+v, want nil on malformed response", resp)
				}
			})
		}
	})

	t.Run("network failure is terminal", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return nil, fmt.Errorf("connection refused")
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Initiate(context.Background())
		var initErr *InitiationError
		if !errors.As(err, &initErr) {
			t.Fatalf("Initiate() error = %T, want *InitiationError", err)
		}
		if len(httpClient.DoCalls) != 1 {
			t.Errorf("Do called %d times, want 1 (no retry)", len(httpClient.DoCalls))
		}
	})
}

func TestClient_Poll(t *testing.T) {
	interval := 5 * time.Second
	window := 10 * time.Minute

	t.Run("returns token immediately on first success", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"access_token":"gho_abc","token_type":"bearer"}`), nil
			},
		}
		c, sleeps := newTestClient(httpClient)

		token, err := c.Poll(context.Background(), "d1", interval, window)
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if token != "gho_abc" {
			t.Errorf("Poll() = %v, want gho_abc", token)
		}
		if c.AccessToken() != "gho_abc" {
			t.Errorf("AccessToken() = %v, want gho_abc", c.AccessToken())
		}
		if len(*sleeps) != 0 {
			t.Errorf("slept %d times, want 0", len(*sleeps))
		}
		if len(httpClient.DoCalls) != 1 {
			t.Errorf("Do called %d times, want 1", len(httpClient.DoCalls))
		}
	})

	t.Run("sleeps one interval between pending responses", func(t *testing.T) {
		responses := []string{
			`{"error":"authorization_pending"}`,
			`{"error":"authorization_pending"}`,
			`{"access_token":"gho_abc"}`,
		}
		call := 0
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				resp := jsonResponse(200, responses[call])
				call++
				return resp, nil
			},
		}
		c, sleeps := newTestClient(httpClient)

		token, err := c.Poll(context.Background(), "d1", interval, window)
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if token != "gho_abc" {
			t.Errorf("Poll() = %v, want gho_abc", token)
		}
		if len(*sleeps) != 2 {
			t.Fatalf("slept %d times, want 2", len(*sleeps))
		}
		for i, d := range *sleeps {
			if d != interval {
				t.Errorf("sleep %d = %v, want %v", i, d, interval)
			}
		}
	})

	t.Run("expired token stops immediately", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"error":"expired_token"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Poll(context.Background(), "d1", interval, window)
		if !errors.Is(err, ErrDeviceCodeExpired) {
			t.Errorf("Poll() error = %v, want ErrDeviceCodeExpired", err)
		}
		if len(httpClient.DoCalls) != 1 {
			t.Errorf("Do called %d times, want 1 (no further attempts)", len(httpClient.DoCalls))
		}
	})

	t.Run("access denied stops immediately", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"error":"access_denied"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Poll(context.Background(), "d1", interval, window)
		if !errors.Is(err, ErrAuthorizationDenied) {
			t.Errorf("Poll() error = %v, want ErrAuthorizationDenied", err)
		}
		if len(httpClient.DoCalls) != 1 {
			t.Errorf("Do called %d times, want 1", len(httpClient.DoCalls))
		}
	})

	t.Run("unknown error code carries description", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"error":"unsupported_grant_type","error_description":"grant not enabled"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Poll(context.Background(), "d1", interval, window)
		var protoErr *ProtocolError
		if !errors.As(err, &protoErr) {
			t.Fatalf("Poll() error = %T, want *ProtocolError", err)
		}
		if protoErr.Code != "unsupported_grant_type" {
			t.Errorf("Code = %v, want unsupported_grant_type", protoErr.Code)
		}
		if !strings.Contains(protoErr.Error(), "grant not enabled") {
			t.Errorf("Error() = %v, want description included", protoErr.Error())
		}
	})

	t.Run("access token wins over error field", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"access_token":"gho_abc","error":"expired_token"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		token, err := c.Poll(context.Background(), "d1", interval, window)
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if token != "gho_abc" {
			t.Errorf("Poll() = %v, want gho_abc", token)
		}
	})

	t.Run("non-200 status is absorbed as pending", func(t *testing.T) {
		call := 0
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				call++
				if call == 1 {
					return jsonResponse(502, "bad gateway"), nil
				}
				return jsonResponse(200, `{"access_token":"gho_abc"}`), nil
			},
		}
		c, sleeps := newTestClient(httpClient)

		token, err := c.Poll(context.Background(), "d1", interval, window)
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if token != "gho_abc" {
			t.Errorf("Poll() = %v, want gho_abc", token)
		}
		if len(*sleeps) != 1 {
			t.Errorf("slept %d times, want 1", len(*sleeps))
		}
	})

	t.Run("network failure is absorbed as pending", func(t *testing.T) {
		call := 0
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				call++
				if call == 1 {
					return nil, fmt.Errorf("connection reset")
				}
				return jsonResponse(200, `{"access_token":"gho_abc"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		token, err := c.Poll(context.Background(), "d1", interval, window)
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if token != "gho_abc" {
			t.Errorf("Poll() = %v, want gho_abc", token)
		}
	})

	t.Run("exhausting the attempt budget times out", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"error":"authorization_pending"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		// 25s window at 5s interval allows exactly 5 attempts
		_, err := c.Poll(context.Background(), "d1", interval, 25*time.Second)
		if !errors.Is(err, ErrAuthorizationTimeout) {
			t.Fatalf("Poll() error = %v, want ErrAuthorizationTimeout", err)
		}
		if len(httpClient.DoCalls) != 5 {
			t.Errorf("Do called %d times, want 5", len(httpClient.DoCalls))
		}
	})

	t.Run("sends device code grant form", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				if err := req.ParseForm(); err != nil {
					t.Fatalf("ParseForm() error = %v", err)
				}
				if got := req.PostForm.Get("device_code"); got != "d1" {
					t.Errorf("device_code = %v, want d1", got)
				}
				if got := req.PostForm.Get("grant_type"); got != GrantType {
					t.Errorf("grant_type = %v, want %v", got, GrantType)
				}
				return jsonResponse(200, `{"access_token":"gho_abc"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		if _, err := c.Poll(context.Background(), "d1", interval, window); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	})

	t.Run("context cancellation aborts the sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				cancel()
				return jsonResponse(200, `{"error":"authorization_pending"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)

		_, err := c.Poll(ctx, "d1", interval, window)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Poll() error = %v, want context.Canceled", err)
		}
	})
}

func TestClient_FetchIdentity(t *testing.T) {
	t.Run("no token returns nil without a request", func(t *testing.T) {
		httpClient := &MockHTTPClient{}
		c, _ := newTestClient(httpClient)

		if got := c.FetchIdentity(context.Background()); got != nil {
			t.Errorf("FetchIdentity() = %+v, want nil", got)
		}
		if len(httpClient.DoCalls) != 0 {
			t.Errorf("Do called %d times, want 0", len(httpClient.DoCalls))
		}
	})

	t.Run("success parses body and headers", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				if got := req.Header.Get("Authorization"); got != "token gho_abc" {
					t.Errorf("Authorization = %v, want token gho_abc", got)
				}
				if got := req.Header.Get("Accept"); got != "application/vnd.github+json" {
					t.Errorf("Accept = %v, want application/vnd.github+json", got)
				}
				resp := jsonResponse(200, `{"login":"octocat","name":"The Octocat","email":"octocat@github.com","public_repos":8,"followers":4000}`)
				resp.Header.Set("X-OAuth-Scopes", "repo, read:user")
				resp.Header.Set("X-RateLimit-Remaining", "4999")
				resp.Header.Set("X-RateLimit-Limit", "5000")
				return resp, nil
			},
		}
		c, _ := newTestClient(httpClient)
		c.accessToken = "gho_abc"

		identity := c.FetchIdentity(context.Background())
		if identity == nil {
			t.Fatal("FetchIdentity() = nil, want identity")
		}
		if identity.Login != "octocat" || identity.PublicRepos != 8 {
			t.Errorf("identity = %+v", identity)
		}
		if len(identity.Scopes) != 2 || identity.Scopes[0] != "repo" {
			t.Errorf("Scopes = %v, want [repo read:user]", identity.Scopes)
		}
		if identity.RateRemaining != "4999" || identity.RateLimit != "5000" {
			t.Errorf("rate = %s/%s, want 4999/5000", identity.RateRemaining, identity.RateLimit)
		}
	})

	t.Run("non-200 returns nil", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(401, `{"message":"Bad credentials"}`), nil
			},
		}
		c, _ := newTestClient(httpClient)
		c.accessToken = "gho_revoked"

		if got := c.FetchIdentity(context.Background()); got != nil {
			t.Errorf("FetchIdentity() = %+v, want nil", got)
		}
	})

	t.Run("network failure returns nil", func(t *testing.T) {
		httpClient := &MockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return nil, fmt.Errorf("timeout")
			},
		}
		c, _ := newTestClient(httpClient)
		c.accessToken = "gho_abc"

		if got := c.FetchIdentity(context.Background()); got != nil {
			t.Errorf("FetchIdentity() = %+v, want nil", got)
		}
	})
}
