package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// NewMeCmd creates the me command.
func NewMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show current user profile",
		Long:  "Display information about the currently authenticated user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			me, err := app.Hub.LoadMe(cmd.Context())
			if err != nil {
				return err
			}
			// Remember who the token belongs to (non-fatal).
			_ = app.Auth.SetUser(me.ID, me.Email)

			crumbs := []output.Breadcrumb{
				{Action: "workspaces", Cmd: "taskhub workspaces list", Description: "List your workspaces"},
				{Action: "billing", Cmd: "taskhub billing status", Description: "Show your plan"},
			}
			if !me.EmailVerified {
				crumbs = append([]output.Breadcrumb{{
					Action: "verify", Cmd: "taskhub auth verify-email <token>", Description: "Verify your email address",
				}}, crumbs...)
			}
			return app.OK(me,
				output.WithEntity("user"),
				output.WithSummary(fmt.Sprintf("%s <%s>", me.Name, me.Email)),
				output.WithBreadcrumbs(crumbs...),
			)
		},
	}
}

// NewAccountCmd creates the account command group.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage your account",
		Long:  "Change your password or delete your account.",
	}
	cmd.AddCommand(newAccountPasswordCmd(), newAccountDeleteCmd())
	return cmd
}

func newAccountPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Long: `Change your password. Prompts for the current password and the new one twice.

Scripts pipe three lines on stdin: current, new, and new again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			var current, next, confirm string
			if app.IsInteractive() {
				p, err := promptPasswordChange(models.ValidatePassword)
				if err != nil {
					return err
				}
				current, next, confirm = p.Current, p.New, p.Confirm
			} else {
				lines, err := readLines(cmd.InOrStdin(), 3)
				if err != nil {
					return err
				}
				current, next, confirm = lines[0], lines[1], lines[2]
			}

			if err := app.Hub.ChangePassword(cmd.Context(), current, next, confirm); err != nil {
				return err
			}
			return app.OK(map[string]string{"status": "password_changed"},
				output.WithSummary("Password changed"))
		},
	}
}

func newAccountDeleteCmd() *cobra.Command {
	var confirmation string
	var force bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account",
		Long: `Permanently delete your account. Type DELETE to confirm, or pass --confirm DELETE.

If you own workspaces that other people belong to, the gateway refuses
unless --force is given. Interactive runs ask before forcing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()
			interactive := app.IsInteractive()

			if confirmation == "" {
				if !interactive {
					return output.ErrUsageHint("Confirmation required",
						"Pass --confirm "+data.DeleteAccountConfirmation)
				}
				typed, err := typeToConfirm("Type "+data.DeleteAccountConfirmation+" to delete your account", data.DeleteAccountConfirmation)
				if err != nil {
					return err
				}
				confirmation = typed
			}

			err := app.Hub.DeleteAccount(ctx, confirmation, force)
			if err != nil && !force && output.ReasonOf(err) == models.ReasonAccountHasSharedWorkspace {
				if !interactive {
					e := output.AsError(err)
					e.Hint = "Re-run with --force to delete shared workspaces too"
					return e
				}
				ok, perr := confirmDangerous("Delete shared workspaces too?",
					"You own workspaces other people belong to. They will be deleted for everyone.")
				if perr != nil {
					return perr
				}
				if !ok {
					return output.ErrUsage("Canceled")
				}
				err = app.Hub.DeleteAccount(ctx, confirmation, true)
			}
			if err != nil {
				return err
			}

			opts := []output.ResponseOption{
				output.WithSummary("Account deleted"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "login", Cmd: "taskhub auth login", Description: "Sign in with another account",
				}),
			}
			if err := app.Auth.Logout(); err != nil {
				opts = append(opts, output.WithWarning("Could not remove stored credentials: "+err.Error()+
					". Run taskhub auth logout"))
			}
			app.Recents.ClearAll()
			return app.OK(map[string]string{"status": "deleted"}, opts...)
		},
	}

	cmd.Flags().StringVar(&confirmation, "confirm", "", "Confirmation text ("+data.DeleteAccountConfirmation+")")
	cmd.Flags().BoolVar(&force, "force", false, "Also delete workspaces shared with others")

	return cmd
}
