package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
)

// NewCommentsCmd creates the comments command group.
func NewCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Manage task comments",
	}
	cmd.AddCommand(newCommentsListCmd(), newCommentsAddCmd(), newCommentsDeleteCmd())
	return cmd
}

func newCommentsListCmd() *cobra.Command {
	var lf listFlags
	var grep string

	cmd := &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's comments",
		Long:  "List a task's comments, newest first, one page at a time.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			taskID, err := requireArg(args, "Task ID", "taskhub comments list <task-id>")
			if err != nil {
				return err
			}
			st, err := lf.state()
			if err != nil {
				return err
			}

			load := func(st filter.State) (data.Collection[models.Comment], error) {
				return app.Hub.LoadComments(cmd.Context(), taskID, st)
			}
			var list data.Collection[models.Comment]
			if lf.all {
				list, err = loadAll(st, load)
			} else {
				list, err = load(st)
			}
			if err != nil {
				return err
			}

			items, err := grepLoaded(list.Items, list.Pagination, lf.all, grep, func(c models.Comment) string {
				return c.Author + " " + c.Content
			})
			if err != nil {
				return err
			}

			opts := []output.ResponseOption{output.WithEntity("comment")}
			if lf.all {
				opts = append(opts, output.WithSummary(fmt.Sprintf("%d comment(s)", len(items))))
				if len(items) == 0 {
					opts = append(opts, empty.NoComments(taskID).Options()...)
				}
			} else {
				opts = append(opts, pageOptions("taskhub comments list "+taskID, st, list.Pagination, len(items), empty.NoComments(taskID))...)
			}
			return app.OK(items, opts...)
		},
	}

	lf.register(cmd, "createdAt")
	cmd.Flags().StringVar(&grep, "grep", "", "Filter loaded comments by text (single page or --all)")

	return cmd
}

func newCommentsAddCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "add <task-id> [text...]",
		Short: "Comment on a task",
		Long: `Add a comment to a task. The text is the remaining arguments, or stdin
with --stdin.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			taskID, err := requireArg(args, "Task ID", `taskhub comments add <task-id> "<text>"`)
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return output.ErrUsageHint("Comment text required", `Usage: taskhub comments add <task-id> "<text>"`)
			}

			c, err := app.Hub.AddComment(cmd.Context(), taskID, text)
			if err != nil {
				return err
			}
			return app.OK(c,
				output.WithEntity("comment"),
				output.WithSummary("Comment added"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "list", Cmd: "taskhub comments list " + taskID, Description: "Read the discussion",
				}),
			)
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the comment from stdin")

	return cmd
}

func newCommentsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <task-id> <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if len(args) < 2 {
				return output.ErrUsageHint("Task ID and comment ID required", "Usage: taskhub comments delete <task-id> <comment-id>")
			}
			taskID, commentID := args[0], args[1]
			if err := confirmOrForce(app, force, "Delete this comment?", ""); err != nil {
				return err
			}
			if err := app.Hub.DeleteComment(cmd.Context(), taskID, commentID); err != nil {
				return err
			}
			return app.OK(map[string]string{"id": commentID, "task_id": taskID, "status": "deleted"},
				output.WithSummary("Comment deleted"))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}
