package platforms

import (
	"fmt"
	"strings"

	"github.com/agentbridge/agentbridge-cli/internal/config"
)

// Summary renders the cross-platform integration overview shown by the
// status tool and command.
func Summary(settings *config.Settings, githubAuthorized bool) string {
	githubStatus := "authorization required"
	githubOps := "authorization flow only"
	if githubAuthorized {
		githubStatus = "ready"
		githubOps = "repositories, issues, pull requests, files"
	}

	salesforceStatus := "not configured"
	salesforceInstance := "not configured"
	if settings.Salesforce.Configured() {
		salesforceStatus = "ready"
		salesforceInstance = settings.Salesforce.InstanceURL
	}

	servicenowStatus := "not configured"
	servicenowInstance := "not configured"
	if settings.ServiceNow.Configured() {
		servicenowStatus = "ready"
		servicenowInstance = settings.ServiceNow.InstanceURL
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Integration summary\n")
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "GitHub:\n")
	fmt.Fprintf(&b, "  Status:     %s\n", githubStatus)
	fmt.Fprintf(&b, "  Operations: %s\n\n", githubOps)
	fmt.Fprintf(&b, "Salesforce:\n")
	fmt.Fprintf(&b, "  Status:     %s\n", salesforceStatus)
	fmt.Fprintf(&b, "  Instance:   %s\n", salesforceInstance)
	fmt.Fprintf(&b, "  Operations: query, DML, describe, search, Apex\n\n")
	fmt.Fprintf(&b, "ServiceNow:\n")
	fmt.Fprintf(&b, "  Status:     %s\n", servicenowStatus)
	fmt.Fprintf(&b, "  Instance:   %s\n", servicenowInstance)
	fmt.Fprintf(&b, "  Operations: incidents, search, updates\n")
	return b.String()
}
