package mcpclient

import (
	"github.com/agentbridge/agentbridge-cli/internal/config"
)

// GitHubServer builds the launch spec for the GitHub tool server. The
// access token comes from a completed device flow authorization.
func GitHubServer(token string) ServerSpec {
	return ServerSpec{
		Name:    "github",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-github"},
		Env: []string{
			"GITHUB_PERSONAL_ACCESS_TOKEN=" + token,
			"NODE_ENV=production",
		},
		ToolFilter: []string{
			"create_repository",
			"get_repository",
			"list_repositories",
			"create_issue",
			"get_issue",
			"list_issues",
			"search_repositories",
			"search_issues",
			"get_file_contents",
			"create_or_update_file",
			"fork_repository",
		},
	}
}

// SalesforceServer builds the launch spec for the Salesforce tool server.
// The server expects the password and security token concatenated.
func SalesforceServer(settings config.SalesforceSettings) ServerSpec {
	return ServerSpec{
		Name:    "salesforce",
		Command: "npx",
		Args:    []string{"-y", "@tsmztech/mcp-server-salesforce"},
		Env: []string{
			"SALESFORCE_CONNECTION_TYPE=User_Password",
			"SALESFORCE_USERNAME=" + settings.Username,
			"SALESFORCE_PASSWORD=" + settings.Password + settings.SecurityToken,
			"SALESFORCE_INSTANCE_URL=" + settings.InstanceURL,
			"NODE_ENV=production",
		},
		ToolFilter: []string{
			"salesforce_search_objects",
			"salesforce_describe_object",
			"salesforce_query_records",
			"salesforce_aggregate_query",
			"salesforce_dml_records",
			"salesforce_manage_object",
			"salesforce_manage_field",
			"salesforce_manage_field_permissions",
			"salesforce_search_sosl",
			"salesforce_apex_read",
			"salesforce_apex_create",
			"salesforce_apex_update",
			"salesforce_apex_execute",
			"salesforce_debug_logs",
		},
	}
}

// ServiceNowServer builds the launch spec for the ServiceNow tool server.
func ServiceNowServer(settings config.ServiceNowSettings) ServerSpec {
	return ServerSpec{
		Name:    "servicenow",
		Command: "python",
		Args: []string{
			"-m", "mcp_server_servicenow.cli",
			"--url", settings.InstanceURL,
			"--username", settings.Username,
			"--password", settings.Password,
		},
		Env: []string{
			"SERVICENOW_INSTANCE_URL=" + settings.InstanceURL,
			"SERVICENOW_USERNAME=" + settings.Username,
			"SERVICENOW_PASSWORD=" + settings.Password,
			"SERVICENOW_AUTH_TYPE=basic",
		},
		ToolFilter: []string{
			"natural_language_search",
			"natural_language_update",
			"create_incident",
			"update_incident",
			"search_records",
			"get_record",
		},
	}
}
