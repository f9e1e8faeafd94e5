package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
)

// NewActivityCmd creates the activity command.
func NewActivityCmd() *cobra.Command {
	var lf listFlags
	var scope, grep string

	cmd := &cobra.Command{
		Use:     "activity [id]",
		Aliases: []string{"activities", "feed"},
		Short:   "Show an activity feed",
		Long: `Show the activity feed of a workspace, project, or task.

The scope defaults to workspace. Without an ID the default workspace or
project is used; task feeds need the task ID.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			sc, err := data.ParseActivityScope(scope)
			if err != nil {
				return err
			}
			var id string
			switch sc {
			case data.ActivityWorkspace:
				id, err = workspaceArg(cmd, app, args)
			case data.ActivityProject:
				id, err = projectID(cmd, app, args)
			default:
				id, err = requireArg(args, "Task ID", "taskhub activity --scope task <task-id>")
			}
			if err != nil {
				return err
			}
			st, err := lf.state()
			if err != nil {
				return err
			}

			load := func(st filter.State) (data.Collection[models.Activity], error) {
				return app.Hub.LoadActivities(cmd.Context(), sc, id, st)
			}
			var list data.Collection[models.Activity]
			if lf.all {
				list, err = loadAll(st, load)
			} else {
				list, err = load(st)
			}
			if err != nil {
				return err
			}

			items, err := grepLoaded(list.Items, list.Pagination, lf.all, grep, func(a models.Activity) string {
				return a.Actor + " " + a.Action + " " + a.Summary
			})
			if err != nil {
				return err
			}

			opts := []output.ResponseOption{output.WithEntity("activity")}
			if lf.all {
				opts = append(opts, output.WithSummary(fmt.Sprintf("%d event(s)", len(items))))
				if len(items) == 0 {
					opts = append(opts, empty.NoActivity().Options()...)
				}
			} else {
				cmdLine := fmt.Sprintf("taskhub activity --scope %s %s", scope, id)
				opts = append(opts, pageOptions(cmdLine, st, list.Pagination, len(items), empty.NoActivity())...)
			}
			return app.OK(items, opts...)
		},
	}

	lf.register(cmd, "createdAt")
	cmd.Flags().StringVar(&scope, "scope", "workspace", "Feed scope (workspace, project, task)")
	cmd.Flags().StringVar(&grep, "grep", "", "Filter loaded events by text (single page or --all)")

	return cmd
}
