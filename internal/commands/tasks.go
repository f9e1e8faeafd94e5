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
)

// NewTasksCmd creates the tasks command group.
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage tasks",
		Long: `List, show, create, update, delete, and move tasks.

Statuses: TODO, IN_PROGRESS, IN_REVIEW, DONE.
Priorities: LOW, MEDIUM, HIGH, URGENT.`,
	}

	cmd.AddCommand(
		newTasksListCmd(),
		newTasksShowCmd(),
		newTasksCreateCmd(),
		newTasksUpdateCmd(),
		newTasksDeleteCmd(),
		newTasksMoveCmd(),
	)

	return cmd
}

func newTasksListCmd() *cobra.Command {
	var lf listFlags
	var status, priority, assignee string

	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's tasks",
		Long: `List a project's tasks, one page at a time.

Filter with --status, --priority, --assignee and --search. Changing a
filter always starts again at page 1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			pid, err := projectID(cmd, app, args)
			if err != nil {
				return err
			}
			st, err := lf.state()
			if err != nil {
				return err
			}
			page := st.Page
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				st = st.WithStatus(s)
			}
			if priority != "" {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				st = st.WithPriority(p)
			}
			if assignee != "" {
				st = st.WithAssignee(assignee)
			}
			st = st.WithPage(page)

			load := func(st filter.State) (data.Collection[models.Task], error) {
				return app.Hub.LoadTasks(cmd.Context(), pid, st)
			}
			var list data.Collection[models.Task]
			if lf.all {
				list, err = loadAll(st, load)
			} else {
				list, err = load(st)
			}
			if err != nil {
				return err
			}

			base := "taskhub tasks list --project " + pid
			none := empty.NoTasks(pid)
			if status != "" || priority != "" || assignee != "" || lf.search != "" {
				none = empty.NoMatches(base)
			}
			opts := []output.ResponseOption{output.WithEntity("task")}
			if lf.all {
				opts = append(opts, output.WithSummary(fmt.Sprintf("%d task(s)", list.Len())))
				if list.Len() == 0 {
					opts = append(opts, none.Options()...)
				}
			} else {
				opts = append(opts, pageOptions(base, st, list.Pagination, list.Len(), none)...)
			}
			return app.OK(list.Items, opts...)
		},
	}

	lf.register(cmd, "title, status, priority, dueDate, createdAt, updatedAt")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee user ID")

	return cmd
}

func newTasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := requireArg(args, "Task ID", "taskhub tasks show <task-id>")
			if err != nil {
				return err
			}
			t, err := app.Hub.LoadTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return app.OK(t,
				output.WithEntity("task"),
				output.WithSummary(fmt.Sprintf("%s [%s]", t.Title, t.Status.Label())),
			)
		},
	}
}

func newTasksCreateCmd() *cobra.Command {
	var title, description, status, priority, assignee, due string

	cmd := &cobra.Command{
		Use:   "create [project-id]",
		Short: "Create a task",
		Long: `Create a task in a project.

New tasks default to TODO and MEDIUM. --due takes YYYY-MM-DD, RFC 3339,
or a relative date such as tomorrow, friday, +3, or in 2 weeks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if title == "" {
				return output.ErrUsageHint("Task title is required", `Use --title "<title>"`)
			}
			in := api.TaskInput{Title: title, Description: description, AssigneeID: assignee}
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				in.Status = s
			}
			if priority != "" {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			d, err := parseDue(due)
			if err != nil {
				return err
			}
			in.DueDate = d

			pid, err := projectID(cmd, app, args)
			if err != nil {
				return err
			}
			t, err := app.Hub.CreateTask(cmd.Context(), pid, in)
			if err != nil {
				return err
			}
			return app.OK(t,
				output.WithEntity("task"),
				output.WithSummary("Created task "+t.Title),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "board", Cmd: "taskhub board --project " + pid, Description: "See it on the board",
				}),
			)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&status, "status", "", "Initial status")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user ID")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, tomorrow, fri, +3, eom)")

	return cmd
}

func newTasksUpdateCmd() *cobra.Command {
	var title, description, status, priority, assignee, due string

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Long: `Update the given fields of a task. Fields without a flag are left alone.

A cached task list shows the change at once and is rolled back if the
gateway refuses it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := requireArg(args, "Task ID", "taskhub tasks update <task-id> [--title ...]")
			if err != nil {
				return err
			}

			var in api.TaskUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = &title
			}
			if flags.Changed("description") {
				in.Description = &description
			}
			if flags.Changed("status") {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				in.Status = &s
			}
			if flags.Changed("priority") {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = &p
			}
			if flags.Changed("assignee") {
				in.AssigneeID = &assignee
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = d
			}
			if in.Empty() {
				return output.ErrUsageHint("Nothing to update",
					"Use --title, --description, --status, --priority, --assignee or --due")
			}

			if app.Flags.Project != "" {
				app.Hub.EnsureProject(app.Flags.Project)
			}
			t, err := app.Hub.UpdateTask(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return app.OK(t, output.WithEntity("task"), output.WithSummary("Updated task "+t.Title))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee user ID")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD, tomorrow, fri, +3, eom)")

	return cmd
}

func newTasksDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			id, err := requireArg(args, "Task ID", "taskhub tasks delete <task-id>")
			if err != nil {
				return err
			}
			if err := confirmOrForce(app, force, "Delete task "+id+"?", "Its comments and documentation are removed."); err != nil {
				return err
			}
			if err := app.Hub.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			_ = app.Shadows.Delete(docs.Key(models.EntityTask, id))
			return app.OK(map[string]string{"id": id, "status": "deleted"}, output.WithSummary("Task deleted"))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func newTasksMoveCmd() *cobra.Command {
	var to string
	var position int

	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task on the board",
		Long: `Move a task to a status column at a position. Positions start at 0;
the default puts the task at the top of the column.

The project comes from --project, or from the task itself.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()

			id, err := requireArg(args, "Task ID", "taskhub tasks move <task-id> --to <status>")
			if err != nil {
				return err
			}
			if to == "" {
				return output.ErrUsageHint("Target status required", "Use --to TODO|IN_PROGRESS|IN_REVIEW|DONE")
			}
			status, err := models.ParseStatus(to)
			if err != nil {
				return err
			}

			pid := app.Flags.Project
			if pid == "" {
				t, err := app.Hub.LoadTask(ctx, id)
				if err != nil {
					return err
				}
				pid = t.ProjectID
			}

			b, err := app.Hub.MoveTask(ctx, pid, id, status, position)
			if err != nil {
				return err
			}
			t, _ := b.Find(id)
			return app.OK(boardView(b),
				output.WithSummary(fmt.Sprintf("Moved %s to %s at %d", orID(t.Title, id), status.Label(), t.Position)))
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target status")
	cmd.Flags().IntVar(&position, "position", 0, "Position in the column, from 0")

	return cmd
}
