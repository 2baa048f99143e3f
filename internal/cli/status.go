package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge-cli/internal/auth"
	"github.com/agentbridge/agentbridge-cli/internal/config"
	"github.com/agentbridge/agentbridge-cli/internal/platforms"
)

func newStatusCmd() *cobra.Command {
	var checkConnections bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of all platform integrations",
		Long: `Show the status of the GitHub, Salesforce and ServiceNow integrations.

With --check, each configured platform is also pinged to verify the stored
credentials still work.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.LoadSettings()

			authorized := os.Getenv(auth.EnvTokenKey) != ""
			if !authorized {
				if store, err := auth.NewKeyringStore(); err == nil {
					authorized = store.Exists()
				}
			}

			cmd.Println(platforms.Summary(settings, authorized))

			if !checkConnections {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if settings.Salesforce.Configured() {
				cmd.Println()
				cmd.Println(platforms.NewSalesforce(settings.Salesforce).Status(ctx))
			}
			if settings.ServiceNow.Configured() {
				cmd.Println()
				cmd.Println(platforms.NewServiceNow(settings.ServiceNow).Status(ctx))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkConnections, "check", false, "ping configured platforms")

	return cmd
}
