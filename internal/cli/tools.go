package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge-cli/internal/auth"
	"github.com/agentbridge/agentbridge-cli/internal/config"
	"github.com/agentbridge/agentbridge-cli/internal/mcpclient"
)

// toolLister is the subset of mcpclient.Client the tools command needs;
// replaceable in tests so no server processes are spawned.
type toolLister interface {
	ListTools() ([]mcpclient.Tool, error)
	Cleanup()
}

var newToolLister = func(spec mcpclient.ServerSpec) toolLister {
	return mcpclient.NewClient(spec)
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools forwarded from the downstream platform servers",
		Long: `Launch each ready platform's tool server and list the tools it forwards.

GitHub requires a completed authorization (agentbridge auth login); Salesforce
and ServiceNow require their credentials in your .env file. Each server is
started, queried over stdio and shut down again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.LoadSettings()

			var specs []mcpclient.ServerSpec
			if token := storedToken(); token != "" {
				specs = append(specs, mcpclient.GitHubServer(token))
			}
			if settings.Salesforce.Configured() {
				specs = append(specs, mcpclient.SalesforceServer(settings.Salesforce))
			}
			if settings.ServiceNow.Configured() {
				specs = append(specs, mcpclient.ServiceNowServer(settings.ServiceNow))
			}

			if len(specs) == 0 {
				cmd.Println("No platform is ready. Authorize GitHub with " +
					"'agentbridge auth login' or configure Salesforce/ServiceNow " +
					"in your .env file.")
				return nil
			}

			for _, spec := range specs {
				printServerTools(cmd, spec)
			}
			return nil
		},
	}
}

// storedToken finds the GitHub token from the environment or the keyring.
func storedToken() string {
	if token := os.Getenv(auth.EnvTokenKey); token != "" {
		return token
	}
	store, err := auth.NewKeyringStore()
	if err != nil {
		return ""
	}
	creds, err := store.Load()
	if err != nil || creds == nil {
		return ""
	}
	return creds.AccessToken
}

func printServerTools(cmd *cobra.Command, spec mcpclient.ServerSpec) {
	client := newToolLister(spec)
	defer client.Cleanup()

	tools, err := client.ListTools()
	if err != nil {
		Error("%s: could not reach tool server: %v", spec.Name, err)
		return
	}

	cmd.Printf("%s (%d tools):\n", spec.Name, len(tools))
	for _, t := range tools {
		cmd.Printf("  %-40s %s\n", t.Name, t.Description)
	}
	cmd.Println()
}
