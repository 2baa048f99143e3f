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

// ServiceNow checks connectivity against a ServiceNow instance.
type ServiceNow struct {
	httpClient HTTPClient
	settings   config.ServiceNowSettings
}

// NewServiceNow creates a ServiceNow checker for the given credentials.
func NewServiceNow(settings config.ServiceNowSettings) *ServiceNow {
	return &ServiceNow{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		settings:   settings,
	}
}

// NewServiceNowWithClient injects the HTTP client. This is primarily for testing.
func NewServiceNowWithClient(settings config.ServiceNowSettings, client HTTPClient) *ServiceNow {
	return &ServiceNow{httpClient: client, settings: settings}
}

// Status validates the basic-auth credentials against the user table.
// Always returns displayable text.
func (s *ServiceNow) Status(ctx context.Context) string {
	if !s.settings.Configured() {
		return strings.Join([]string{
			"ServiceNow configuration incomplete.",
			"",
			"Set SERVICENOW_INSTANCE_URL, SERVICENOW_USERNAME and",
			"SERVICENOW_PASSWORD in your .env file.",
		}, "\n")
	}

	url := strings.TrimRight(s.settings.InstanceURL, "/") + "/api/now/table/sys_user?sysparm_limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("Error checking ServiceNow status: %v", err)
	}
	req.SetBasicAuth(s.settings.Username, s.settings.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("servicenow ping failed")
		return fmt.Sprintf("ServiceNow instance unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("ServiceNow validation failed (status %d)", resp.StatusCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ServiceNow connection: active\n\n")
	fmt.Fprintf(&b, "  Instance: %s\n", s.settings.InstanceURL)
	fmt.Fprintf(&b, "  Username: %s\n\n", s.settings.Username)
	fmt.Fprintf(&b, "ServiceNow tools: ready (incidents, search, updates)")
	return b.String()
}
