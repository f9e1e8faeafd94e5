package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/docs"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// NewProjectsCmd creates the projects command group.
func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage projects",
		Long:    "List, show, create, update, and delete projects in a workspace.",
	}

	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsShowCmd(),
		newProjectsCreateCmd(),
		newProjectsUpdateCmd(),
		newProjectsDeleteCmd(),
	)

	return cmd
}

func newProjectsListCmd() *cobra.Command {
	var lf listFlags
	var counts bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long: `List the projects of a workspace, one page at a time.

Use --page to move through pages or --all to fetch every page. --counts
adds each listed project's tasks per status under meta.task_counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			st, err := lf.state()
			if err != nil {
				return err
			}

			load := func(st filter.State) (data.Collection[models.Project], error) {
				return app.Hub.LoadProjects(cmd.Context(), ws, st)
			}
			var list data.Collection[models.Project]
			if lf.all {
				list, err = loadAll(st, load)
			} else {
				list, err = load(st)
			}
			if err != nil {
				return err
			}

			none := empty.NoProjects(ws)
			if lf.search != "" {
				none = empty.NoMatches("taskhub projects list --workspace " + ws)
			}
			opts := []output.ResponseOption{output.WithEntity("project")}
			if lf.all {
				opts = append(opts, output.WithSummary(fmt.Sprintf("%d project(s)", list.Len())))
				if list.Len() == 0 {
					opts = append(opts, none.Options()...)
				}
			} else {
				opts = append(opts, pageOptions("taskhub projects list --workspace "+ws, st, list.Pagination, list.Len(), none)...)
			}
			if counts && list.Len() > 0 {
				opts = append(opts, taskCountOptions(app.Hub.LoadTaskCounts(cmd.Context(), ws, list.IDs()))...)
			}
			return app.OK(list.Items, opts...)
		},
	}

	lf.register(cmd, "name, createdAt, updatedAt")
	cmd.Flags().BoolVar(&counts, "counts", false, "Include task counts per status")

	return cmd
}

// taskCountOptions reports per-project task counts, and the projects whose
// counts could not be loaded, in the response meta.
func taskCountOptions(results []data.Result[data.TaskCounts]) []output.ResponseOption {
	counts := make(map[string]data.TaskCounts, len(results))
	failed := make(map[string]string)
	for _, r := range results {
		if r.Err != nil {
			failed[r.Key] = output.AsError(r.Err).Message
			continue
		}
		counts[r.Key] = r.Data
	}
	opts := []output.ResponseOption{output.WithMeta("task_counts", counts)}
	if len(failed) > 0 {
		opts = append(opts, output.WithMeta("task_count_errors", failed))
	}
	return opts
}

// projectOverview is a project together with its members. Either half may
// be missing when its request failed.
type projectOverview struct {
	Project *models.Project   `json:"project"`
	Members []models.Member   `json:"members"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func newProjectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [project-id]",
		Short: "Show a project and its members",
		Long: `Show a project together with the members who can access it.

Both are fetched at the same time. If one request fails the other is
still shown, with the failure listed under errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := projectID(cmd, app, args)
			if err != nil {
				return err
			}

			loadErr := app.Hub.LoadProjectOverview(cmd.Context(), id)
			detail := app.Hub.ProjectDetail(id).Get()
			members := app.Hub.ProjectMembers(id).Get()
			if !detail.HasData && !members.HasData {
				return loadErr
			}

			var ov projectOverview
			if detail.HasData {
				p := detail.Data
				ov.Project = &p
				app.Recents.Add(recents.Item{ID: p.ID, Title: p.Name, Kind: recents.KindProject, WorkspaceID: p.WorkspaceID})
			} else {
				ov.Errors = map[string]string{"project": errText(detail.Err, loadErr)}
			}
			if members.HasData {
				ov.Members = members.Data.Items
			} else {
				ov.Errors = map[string]string{"members": errText(members.Err, loadErr)}
			}

			summary := id
			if ov.Project != nil {
				summary = fmt.Sprintf("%s (%d member(s), %d task(s))", ov.Project.Name, len(ov.Members), ov.Project.TasksCount)
			}
			return app.OK(ov,
				output.WithSummary(summary),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "tasks", Cmd: "taskhub tasks list --project " + id, Description: "List tasks"},
					output.Breadcrumb{Action: "board", Cmd: "taskhub board --project " + id, Description: "Show the board"},
					output.Breadcrumb{Action: "docs", Cmd: "taskhub docs show project " + id, Description: "Read the documentation"},
				),
			)
		},
	}
}

func errText(errs ...error) string {
	for _, err := range errs {
		if err != nil {
			return err.Error()
		}
	}
	return "unavailable"
}

func newProjectsCreateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if name == "" {
				return output.ErrUsageHint("Project name is required", `Use --name "<name>"`)
			}
			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}

			p, err := app.Hub.CreateProject(cmd.Context(), ws, api.ProjectInput{Name: name, Description: description})
			if err != nil {
				return err
			}
			app.Recents.Add(recents.Item{ID: p.ID, Title: p.Name, Kind: recents.KindProject, WorkspaceID: ws})

			return app.OK(p,
				output.WithEntity("project"),
				output.WithSummary("Created project "+p.Name),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "task", Cmd: fmt.Sprintf(`taskhub tasks create --project %s --title "<title>"`, p.ID), Description: "Add a task"},
					output.Breadcrumb{Action: "default", Cmd: "taskhub config set project_id " + p.ID, Description: "Make it the default project"},
				),
			)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")

	return cmd
}

func newProjectsUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update [project-id]",
		Short: "Rename or describe a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			nameSet, descSet := cmd.Flags().Changed("name"), cmd.Flags().Changed("description")
			if !nameSet && !descSet {
				return output.ErrUsageHint("Nothing to update", "Use --name and/or --description")
			}
			id, err := projectID(cmd, app, args)
			if err != nil {
				return err
			}

			current, err := app.Hub.LoadProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			in := api.ProjectInput{Name: current.Name, Description: current.Description}
			if nameSet {
				in.Name = name
			}
			if descSet {
				in.Description = description
			}

			p, err := app.Hub.UpdateProject(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return app.OK(p, output.WithEntity("project"), output.WithSummary("Updated project "+p.Name))
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")

	return cmd
}

func newProjectsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Long:  "Delete a project with its tasks, comments, and documentation.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := requireArg(args, "Project ID", "taskhub projects delete <project-id>")
			if err != nil {
				return err
			}
			if err := confirmOrForce(app, force, "Delete project "+id+"?", "Tasks, comments and documentation are removed."); err != nil {
				return err
			}
			if err := app.Hub.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}

			app.Recents.Forget(recents.KindProject, id)
			_ = app.Shadows.Delete(docs.Key(models.EntityProject, id))
			opts := []output.ResponseOption{output.WithSummary("Project deleted")}
			if app.Config.ProjectID == id {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action: "unset", Cmd: "taskhub config unset project_id", Description: "Clear the default project",
				}))
			}
			return app.OK(map[string]string{"id": id, "status": "deleted"}, opts...)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}
