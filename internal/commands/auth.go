// Package commands implements the CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/auth"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Sign in to TaskHub, sign out, and inspect the stored credentials.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthTokenCmd(),
		newAuthVerifyEmailCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, token string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to TaskHub",
		Long: `Sign in with your email and password, or store an existing API token.

Interactive terminals are prompted for anything not given as a flag.
Scripts pass --email and pipe the password with --password-stdin:

  echo "$PASSWORD" | taskhub auth login --email ada@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			ctx := cmd.Context()

			if token != "" {
				if err := app.Auth.Login(token, "", ""); err != nil {
					return err
				}
				me, err := app.Hub.LoadMe(ctx)
				if err != nil {
					_ = app.Auth.Logout()
					return err
				}
				_ = app.Auth.SetUser(me.ID, me.Email)
				return loginOK(cmd, app, me)
			}

			var password string
			if passwordStdin {
				p, err := readSecret(cmd.InOrStdin(), "password-stdin")
				if err != nil {
					return err
				}
				password = p
			}
			if email == "" || password == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Email and password required",
						"Use --email with --password-stdin, or --token")
				}
				creds, err := promptCredentials(email, models.ValidateEmail)
				if err != nil {
					return err
				}
				email, password = creds.Email, creds.Password
			}

			res, err := app.Hub.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := app.Auth.Login(res.Token, res.User.ID, res.User.Email); err != nil {
				return err
			}
			return loginOK(cmd, app, res.User)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().StringVar(&token, "token", "", "Store an API token instead of signing in")

	return cmd
}

// loginOK reports a successful sign-in. A user with no workspace is
// pointed at onboarding.
func loginOK(cmd *cobra.Command, app *appctx.App, user models.User) error {
	result := map[string]any{
		"status":  "logged_in",
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
	}
	summary := fmt.Sprintf("Signed in as %s <%s>", user.Name, user.Email)

	workspaces, err := app.Hub.LoadWorkspaces(cmd.Context())
	if err == nil && workspaces.Len() == 0 {
		onboarding := empty.NoWorkspaces()
		return app.OK(result,
			output.WithSummary(summary+". "+onboarding.Title),
			output.WithBreadcrumbs(onboarding.Next...))
	}

	crumbs := []output.Breadcrumb{
		{Action: "workspaces", Cmd: "taskhub workspaces list", Description: "List your workspaces"},
	}
	if !user.EmailVerified {
		crumbs = append(crumbs, output.Breadcrumb{
			Action: "verify", Cmd: "taskhub auth verify-email --token <token>", Description: "Verify your email address",
		})
	}
	return app.OK(result, output.WithSummary(summary), output.WithBreadcrumbs(crumbs...))
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Remove stored credentials for the current gateway and clear every cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if err := app.Auth.Logout(); err != nil {
				return err
			}
			app.Hub.Logout()
			app.Recents.ClearAll()

			return app.OK(map[string]string{
				"status": "logged_out",
			},
				output.WithSummary("Successfully logged out"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "login", Cmd: "taskhub auth login", Description: "Sign in again",
				}),
			)
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display whether a token is available and where it comes from.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			origin := config.NormalizeBaseURL(app.Config.BaseURL)

			if os.Getenv(auth.TokenEnv) != "" {
				return app.OK(map[string]any{
					"authenticated": true,
					"origin":        origin,
					"source":        auth.TokenEnv,
				}, output.WithSummary("Authenticated via "+auth.TokenEnv+" env var"))
			}

			creds := app.Auth.Credentials()
			if creds == nil || creds.Token == "" {
				return app.OK(map[string]any{
					"authenticated": false,
					"origin":        origin,
				},
					output.WithSummary("Not authenticated"),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action: "login", Cmd: "taskhub auth login", Description: "Sign in",
					}),
				)
			}

			storage := "file"
			if app.Auth.Store().UsingKeyring() {
				storage = "keyring"
			}
			status := map[string]any{
				"authenticated": true,
				"origin":        origin,
				"source":        storage,
				"saved_at":      creds.SavedAt,
			}
			summary := "Authenticated"
			if creds.UserID != "" {
				status["user_id"] = creds.UserID
			}
			if creds.Email != "" {
				status["email"] = creds.Email
				summary += " as " + creds.Email
			}

			return app.OK(status, output.WithSummary(summary))
		},
	}
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the auth token",
		Long: `Print the current access token to stdout for use with other tools.

  curl -H "Authorization: Bearer $(taskhub auth token)" ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			token, err := app.Auth.AccessToken(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

func newAuthVerifyEmailCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "verify-email [token]",
		Short: "Verify your email address",
		Long: `Confirm your email address with the token from the verification email.

The check gives up after 15 seconds even if the gateway answers later.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			if len(args) > 0 {
				token = args[0]
			}
			if strings.TrimSpace(token) == "" {
				return output.ErrUsageHint("Verification token required", "Usage: taskhub auth verify-email <token>")
			}

			err := withSpinner(cmd.Context(), app, "Verifying email", func(ctx context.Context) error {
				return app.Hub.VerifyEmail(ctx, token)
			})
			if err != nil {
				return err
			}
			return app.OK(map[string]string{"status": "verified"},
				output.WithSummary("Email verified"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "me", Cmd: "taskhub me", Description: "Show your profile",
				}),
			)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Verification token")

	return cmd
}
