package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge-cli/internal/auth"
	"github.com/agentbridge/agentbridge-cli/internal/config"
	"github.com/agentbridge/agentbridge-cli/internal/envfile"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage GitHub authorization",
		Long:  `Manage GitHub authorization via the OAuth device flow.`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthStatusCmd(),
		newAuthLogoutCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var noBrowser bool
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize GitHub access",
		Long: `Authorize GitHub access using the OAuth device flow.

A one-time code is displayed and the verification page is opened in your
browser. Approve the request there; the command waits until GitHub reports
the authorization as complete, then persists the token for the downstream
tool servers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.LoadSettings()
			if settings.GitHubClientID == "" {
				return fmt.Errorf("GITHUB_CLIENT_ID is not set; add it to your .env file")
			}

			store, err := auth.NewKeyringStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			session := auth.NewSession(store, envfile.NewWriter(), &auth.SessionConfig{
				ClientID:     settings.GitHubClientID,
				ClientSecret: settings.GitHubClientSecret,
				NoBrowser:    noBrowser,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), auth.DefaultPollWindow+time.Minute)
			defer cancel()

			// Check if already authorized
			if !force && store.Exists() {
				reauth := false
				prompt := &survey.Confirm{
					Message: "A GitHub token is already stored. Authorize again?",
				}
				if err := survey.AskOne(prompt, &reauth); err != nil || !reauth {
					Info("Keeping existing authorization")
					return nil
				}
			}

			fmt.Println("→ Authorizing with GitHub")
			fmt.Println()
			fmt.Println(session.Start(ctx))
			fmt.Println()

			if !session.Active() {
				return fmt.Errorf("authorization could not be started")
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Waiting for approval at github.com/device..."
			sp.Start()
			result := session.Complete(ctx)
			sp.Stop()

			fmt.Println(result)

			token := os.Getenv(auth.EnvTokenKey)
			if token == "" {
				return fmt.Errorf("authorization did not complete")
			}

			saveUserInfo(ctx, settings, token)
			Success("GitHub authorization complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "don't open the browser automatically")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-authorize even if a token is stored")

	return cmd
}

// saveUserInfo records the authorized user in the CLI config, best effort.
func saveUserInfo(ctx context.Context, settings *config.Settings, token string) {
	identity := auth.NewClient(settings.GitHubClientID, settings.GitHubClientSecret).Validate(ctx, token)
	if identity == nil {
		return
	}
	cfg, err := config.Load()
	if err != nil {
		return
	}
	_ = cfg.SetCurrentUser(&config.UserInfo{
		Login:     identity.Login,
		Name:      identity.Name,
		Email:     identity.Email,
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show GitHub authorization status",
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

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			fmt.Println(session.Status(ctx))
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored GitHub token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewKeyringStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			if !store.Exists() {
				Info("No stored authorization")
				return nil
			}

			if !yes {
				confirm := false
				prompt := &survey.Confirm{Message: "Remove the stored GitHub token?"}
				if err := survey.AskOne(prompt, &confirm); err != nil || !confirm {
					return nil
				}
			}

			if err := store.Delete(); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			Success("Logged out")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
