// Package platforms implements the connectivity checks for the CRM and ITSM
// systems the bridge exposes to the agent. Like the authorization session,
// every operation here returns displayable text rather than an error.
package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agentbridge/agentbridge-cli/internal/config"
)

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Salesforce checks connectivity against a Salesforce instance.
type Salesforce struct {
	httpClient HTTPClient
	settings   config.SalesforceSettings
}

// NewSalesforce creates a Salesforce checker for the given credentials.
func NewSalesforce(settings config.SalesforceSettings) *Salesforce {
	return &Salesforce{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		settings:   settings,
	}
}

// NewSalesforceWithClient injects the HTTP client. This is primarily for testing.
func NewSalesforceWithClient(settings config.SalesforceSettings, client HTTPClient) *Salesforce {
	return &Salesforce{httpClient: client, settings: settings}
}

// FullPassword returns the password with the security token appended, the
// concatenated form the Salesforce tool server expects.
func (s *Salesforce) FullPassword() string {
	return s.settings.Password + s.settings.SecurityToken
}

// Status reports whether the instance is reachable and which credentials
// are missing. Always returns displayable text.
func (s *Salesforce) Status(ctx context.Context) string {
	if !s.settings.Configured() {
		return s.renderMissing()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(s.settings.InstanceURL, "/")+"/services/data/", nil)
	if err != nil {
		return fmt.Sprintf("Error checking Salesforce status: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("salesforce ping failed")
		return fmt.Sprintf("Salesforce instance unreachable: %v", err)
	}
	defer resp.Body.Close()

	// A redirect to login still proves the instance is up.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return fmt.Sprintf("Salesforce instance unreachable (status %d)", resp.StatusCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Salesforce connection: active\n\n")
	fmt.Fprintf(&b, "  Instance: %s\n", s.settings.InstanceURL)
	fmt.Fprintf(&b, "  Username: %s\n", s.settings.Username)
	fmt.Fprintf(&b, "  Security token: present\n\n")
	fmt.Fprintf(&b, "Salesforce tools: ready (query, DML, describe, search, Apex)")
	return b.String()
}

func (s *Salesforce) renderMissing() string {
	check := func(present bool, shown string) string {
		if present {
			return shown
		}
		return "missing"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Salesforce configuration incomplete.\n\n")
	fmt.Fprintf(&b, "  Instance URL:   %s\n", check(s.settings.InstanceURL != "", s.settings.InstanceURL))
	fmt.Fprintf(&b, "  Username:       %s\n", check(s.settings.Username != "", s.settings.Username))
	fmt.Fprintf(&b, "  Password:       %s\n", check(s.settings.Password != "", "set"))
	fmt.Fprintf(&b, "  Security token: %s\n\n", check(s.settings.SecurityToken != "", "set"))
	fmt.Fprintf(&b, "Update your .env file with the missing credentials.")
	return b.String()
}
