package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// NewWorkspacesCmd creates the workspaces command group.
func NewWorkspacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"workspace", "ws"},
		Short:   "Manage workspaces",
		Long:    "List, show, create, update, delete, or switch workspaces.",
	}

	cmd.AddCommand(
		newWorkspacesListCmd(),
		newWorkspacesShowCmd(),
		newWorkspacesCreateCmd(),
		newWorkspacesUpdateCmd(),
		newWorkspacesDeleteCmd(),
		newWorkspacesSwitchCmd(),
	)

	return cmd
}

func newWorkspacesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your workspaces",
		Long: `List every workspace you belong to.

With no workspaces, interactive terminals offer to create the first one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			list, err := app.Hub.LoadWorkspaces(cmd.Context())
			if err != nil {
				return err
			}
			if list.Len() == 0 {
				if app.IsInteractive() {
					return onboardWorkspace(cmd, app)
				}
				return app.OK(list.Items, empty.NoWorkspaces().Options()...)
			}

			return app.OK(list.Items,
				output.WithEntity("workspace"),
				output.WithSummary(fmt.Sprintf("%d workspace(s)", list.Len())),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "switch", Cmd: "taskhub workspaces switch <id>", Description: "Set the default workspace"},
					output.Breadcrumb{Action: "projects", Cmd: "taskhub projects list --workspace <id>", Description: "List a workspace's projects"},
				),
			)
		},
	}
}

// onboardWorkspace asks for a name and creates the user's first workspace.
func onboardWorkspace(cmd *cobra.Command, app *appctx.App) error {
	answers, err := promptNewWorkspace(func(s string) error { return models.ValidateName("name", s) })
	if err != nil {
		return err
	}
	return createWorkspace(cmd, app, api.WorkspaceInput{Name: answers.Name, Description: answers.Description})
}

func createWorkspace(cmd *cobra.Command, app *appctx.App, in api.WorkspaceInput) error {
	ws, err := app.Hub.CreateWorkspace(cmd.Context(), in)
	if err != nil {
		return err
	}
	return app.OK(ws,
		output.WithEntity("workspace"),
		output.WithSummary("Created workspace "+ws.Name),
		output.WithBreadcrumbs(
			output.Breadcrumb{Action: "switch", Cmd: "taskhub workspaces switch " + ws.ID, Description: "Make it the default"},
			output.Breadcrumb{Action: "invite", Cmd: "taskhub invite generate --workspace " + ws.ID, Description: "Invite people"},
		),
	)
}

func newWorkspacesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [workspace-id]",
		Short: "Show workspace details",
		Long: `Show details for a workspace.

Without an ID the default workspace is used, or you are prompted to pick one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := workspaceArg(cmd, app, args)
			if err != nil {
				return err
			}
			ws, err := app.Hub.LoadWorkspace(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.OK(ws,
				output.WithEntity("workspace"),
				output.WithSummary(ws.Name),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "projects", Cmd: "taskhub projects list --workspace " + ws.ID, Description: "List projects"},
					output.Breadcrumb{Action: "members", Cmd: "taskhub members list --workspace " + ws.ID, Description: "List members"},
				),
			)
		},
	}
}

// workspaceArg returns the explicit ID from args, or resolves one.
func workspaceArg(cmd *cobra.Command, app *appctx.App, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return workspaceID(cmd, app)
}

func newWorkspacesCreateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		Long: `Create a new workspace. You become its owner.

Interactive terminals are prompted when --name is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if name == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Workspace name is required", `Use --name "<name>"`)
				}
				return onboardWorkspace(cmd, app)
			}
			return createWorkspace(cmd, app, api.WorkspaceInput{Name: name, Description: description})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Workspace name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Workspace description")

	return cmd
}

func newWorkspacesUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update [workspace-id]",
		Short: "Rename or describe a workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			nameSet, descSet := cmd.Flags().Changed("name"), cmd.Flags().Changed("description")
			if !nameSet && !descSet {
				return output.ErrUsageHint("Nothing to update", "Use --name and/or --description")
			}
			id, err := workspaceArg(cmd, app, args)
			if err != nil {
				return err
			}

			// Unchanged fields keep their current value.
			current, err := app.Hub.LoadWorkspace(cmd.Context(), id)
			if err != nil {
				return err
			}
			in := api.WorkspaceInput{Name: current.Name, Description: current.Description}
			if nameSet {
				in.Name = name
			}
			if descSet {
				in.Description = description
			}

			ws, err := app.Hub.UpdateWorkspace(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return app.OK(ws, output.WithEntity("workspace"), output.WithSummary("Updated workspace "+ws.Name))
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")

	return cmd
}

func newWorkspacesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace",
		Long: `Delete a workspace and everything in it.

A workspace other people still belong to is only deleted with --force.
Interactive runs ask first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()

			id, err := requireArg(args, "Workspace ID", "taskhub workspaces delete <workspace-id>")
			if err != nil {
				return err
			}
			if err := confirmOrForce(app, force, "Delete workspace "+id+"?", "Projects, tasks and documentation are removed."); err != nil {
				return err
			}

			err = app.Hub.DeleteWorkspace(ctx, id, force)
			if err != nil && !force && output.ReasonOf(err) == models.ReasonWorkspaceHasMembers {
				if !app.IsInteractive() {
					e := output.AsError(err)
					e.Hint = "Re-run with --force to delete it for every member"
					return e
				}
				ok, perr := confirmDangerous("This workspace has other members. Delete it for everyone?", "")
				if perr != nil {
					return perr
				}
				if !ok {
					return output.ErrUsage("Canceled")
				}
				err = app.Hub.DeleteWorkspace(ctx, id, true)
			}
			if err != nil {
				return err
			}

			app.Recents.Forget(recents.KindWorkspace, id)
			opts := []output.ResponseOption{output.WithSummary("Workspace deleted")}
			if app.Config.WorkspaceID == id {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action: "switch", Cmd: "taskhub workspaces switch", Description: "Pick a new default workspace",
				}))
			}
			return app.OK(map[string]string{"id": id, "status": "deleted"}, opts...)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation and delete even with other members")

	return cmd
}

func newWorkspacesSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch [workspace-id|name]",
		Short: "Set the default workspace",
		Long: `Save a workspace as workspace_id in the global config.

The argument is a workspace ID or a workspace name (case-insensitive).
Without one you pick from your workspaces. The default project is cleared
because it belongs to the previous workspace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()
			r := app.Resolver()

			var id, title string
			if len(args) > 0 {
				ws, err := findWorkspace(ctx, app, args[0])
				if err != nil {
					return err
				}
				id, title = ws.ID, ws.Name
				r.Remember(recents.KindWorkspace, tui.Choice{ID: ws.ID, Title: ws.Name}, "")
			} else {
				if !r.IsInteractive() {
					return output.ErrUsageHint("Workspace ID required", "Usage: taskhub workspaces switch <workspace-id>")
				}
				v, err := r.PickWorkspace(ctx)
				if err != nil {
					return err
				}
				id, title = v.ID, v.Title
			}

			if err := r.Persist("workspace_id", id); err != nil {
				return err
			}
			if app.Config.ProjectID != "" && app.Config.WorkspaceID != id {
				if err := unsetGlobal("project_id"); err != nil {
					return err
				}
			}
			app.Hub.SwitchWorkspace(id)

			return app.OK(map[string]string{"workspace_id": id, "name": title},
				output.WithSummary("Default workspace is now "+orID(title, id)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "projects", Cmd: "taskhub projects list", Description: "List its projects",
				}),
			)
		},
	}
}

// findWorkspace matches arg against the user's workspaces by ID, then by
// name.
func findWorkspace(ctx context.Context, app *appctx.App, arg string) (models.Workspace, error) {
	list, err := app.Hub.LoadWorkspaces(ctx)
	if err != nil {
		return models.Workspace{}, err
	}
	var matches []models.Workspace
	for _, w := range list.Items {
		if w.ID == arg {
			return w, nil
		}
		if strings.EqualFold(w.Name, arg) {
			matches = append(matches, w)
		}
	}
	switch len(matches) {
	case 0:
		return models.Workspace{}, output.ErrNotFoundHint("workspace", arg, "Run taskhub workspaces list to see your workspaces")
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, w := range matches {
		names[i] = w.Name + " (" + w.ID + ")"
	}
	return models.Workspace{}, output.ErrAmbiguous("workspace", names)
}

func orID(title, id string) string {
	if title != "" {
		return title
	}
	return id
}
