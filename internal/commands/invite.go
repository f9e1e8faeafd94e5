package commands

import (
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// NewInviteCmd creates the invite command group.
func NewInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invite",
		Aliases: []string{"invites"},
		Short:   "Manage workspace invite links",
		Long: `Show, generate, or reset a workspace's invite link, or join a workspace
with one.

A workspace has at most one invite link. Generating again returns the same
link; resetting replaces it and the old token stops working.`,
	}
	cmd.AddCommand(newInviteShowCmd(), newInviteGenerateCmd(), newInviteResetCmd(), newInviteJoinCmd())
	return cmd
}

func inviteOK(app *appctx.App, link *models.InviteLink, summary string) error {
	return app.OK(link,
		output.WithEntity("invite"),
		output.WithSummary(summary),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action: "reset", Cmd: "taskhub invite reset --workspace " + link.WorkspaceID, Description: "Invalidate this link",
		}),
	)
}

func newInviteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the invite link",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			link, err := app.Hub.LoadInviteLink(cmd.Context(), ws)
			if err != nil {
				return err
			}
			if link == nil {
				return app.OK(map[string]any{"workspace_id": ws, "token": nil},
					output.WithSummary("No invite link yet"),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action: "generate", Cmd: "taskhub invite generate --workspace " + ws, Description: "Create one",
					}),
				)
			}
			return inviteOK(app, link, "Invite link")
		},
	}
}

func newInviteGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Create the invite link, or return the existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			link, err := app.Hub.GenerateInviteLink(cmd.Context(), ws)
			if err != nil {
				return err
			}
			return inviteOK(app, link, "Invite link generated")
		},
	}
}

func newInviteResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the invite link with a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			if err := confirmOrForce(app, force, "Reset the invite link?", "The current link stops working."); err != nil {
				return err
			}
			link, err := app.Hub.ResetInviteLink(cmd.Context(), ws)
			if err != nil {
				return err
			}
			return inviteOK(app, link, "Invite link reset")
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func newInviteJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <token-or-link>",
		Short: "Join a workspace with an invite",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			raw, err := requireArg(args, "Invite token", "taskhub invite join <token-or-link>")
			if err != nil {
				return err
			}
			ws, err := app.Hub.JoinWorkspace(cmd.Context(), inviteToken(raw))
			if err != nil {
				switch output.ReasonOf(err) {
				case models.ReasonAlreadyMember:
					e := output.AsError(err)
					e.Hint = "You already belong to this workspace. Run: taskhub workspaces list"
					return e
				case models.ReasonInviteTokenInvalid:
					e := output.AsError(err)
					e.Hint = "The link was reset or mistyped. Ask a workspace owner for a new one"
					return e
				}
				return err
			}
			app.Recents.Add(recents.Item{ID: ws.ID, Title: ws.Name, Kind: recents.KindWorkspace})

			return app.OK(ws,
				output.WithEntity("workspace"),
				output.WithSummary("Joined "+ws.Name),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "switch", Cmd: "taskhub workspaces switch " + ws.ID, Description: "Make it the default",
				}),
			)
		},
	}
}

// inviteToken accepts a bare token or an invite URL carrying it as the
// token query parameter or the last path segment.
func inviteToken(s string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	if t := u.Query().Get("token"); t != "" {
		return t
	}
	if base := path.Base(strings.TrimSuffix(u.Path, "/")); base != "." && base != "/" {
		return base
	}
	return s
}
