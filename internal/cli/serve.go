package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge-cli/internal/auth"
	"github.com/agentbridge/agentbridge-cli/internal/config"
	"github.com/agentbridge/agentbridge-cli/internal/envfile"
	"github.com/agentbridge/agentbridge-cli/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Long: `Start the agentbridge MCP (Model Context Protocol) server on stdio.

The server exposes the GitHub authorization operations and the platform
status checks as tools for an LLM agent runtime. The authorization session
lives for the duration of the server process: an agent calls
github_auth_start, relays the one-time code to the operator, then calls
github_auth_complete once the code has been approved.`,
		Example: `  # For an agent runtime's tool configuration
  agentbridge serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.LoadSettings()

			store, err := auth.NewKeyringStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			session := auth.NewSession(store, envfile.NewWriter(), &auth.SessionConfig{
				ClientID:     settings.GitHubClientID,
				ClientSecret: settings.GitHubClientSecret,
			})

			server := mcp.NewServer(session, settings, version)
			return server.Run(cmd.Context())
		},
	}
}
