package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// NewMembersCmd creates the members command group.
func NewMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "members",
		Aliases: []string{"member", "people"},
		Short:   "Manage workspace members",
		Long:    "List members of a workspace, change their access level, or remove them.",
	}
	cmd.AddCommand(newMembersListCmd(), newMembersUpdateCmd(), newMembersRemoveCmd())
	return cmd
}

func newMembersListCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Long:  "List the members of the workspace, or of a project with --in-project.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if project != "" {
				members, err := app.Hub.LoadProjectMembers(cmd.Context(), project)
				if err != nil {
					return err
				}
				return app.OK(members.Items,
					output.WithEntity("member"),
					output.WithSummary(fmt.Sprintf("%d member(s) in project", members.Len())))
			}

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			members, err := app.Hub.LoadMembers(cmd.Context(), ws)
			if err != nil {
				return err
			}
			return app.OK(members.Items,
				output.WithEntity("member"),
				output.WithSummary(fmt.Sprintf("%d member(s)", members.Len())),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "invite", Cmd: "taskhub invite show", Description: "Share the invite link"},
					output.Breadcrumb{Action: "access", Cmd: "taskhub members update <user-id> --access viewer", Description: "Change access level"},
				),
			)
		},
	}

	cmd.Flags().StringVar(&project, "in-project", "", "List members of this project instead")

	return cmd
}

func newMembersUpdateCmd() *cobra.Command {
	var access string

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change a member's access level",
		Long:  "Change a member's access level: owner, member or viewer.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			userID, err := requireArg(args, "User ID", "taskhub members update <user-id> --access <level>")
			if err != nil {
				return err
			}
			if access == "" {
				return output.ErrUsageHint("Access level required", "Use --access owner|member|viewer")
			}
			level, err := models.ParseAccessLevel(access)
			if err != nil {
				return err
			}
			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}

			member, err := app.Hub.UpdateMemberAccess(cmd.Context(), ws, userID, level)
			if err != nil {
				return err
			}
			return app.OK(member,
				output.WithEntity("member"),
				output.WithSummary(fmt.Sprintf("%s is now %s", orID(member.Name, member.UserID), level)))
		},
	}

	cmd.Flags().StringVar(&access, "access", "", "Access level (owner, member, viewer)")

	return cmd
}

func newMembersRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a member from the workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			userID, err := requireArg(args, "User ID", "taskhub members remove <user-id>")
			if err != nil {
				return err
			}
			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			if err := confirmOrForce(app, force, "Remove "+userID+" from the workspace?", ""); err != nil {
				return err
			}

			if err := app.Hub.RemoveMember(cmd.Context(), ws, userID); err != nil {
				return err
			}
			return app.OK(map[string]string{"user_id": userID, "workspace_id": ws, "status": "removed"},
				output.WithSummary("Member removed"))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}
