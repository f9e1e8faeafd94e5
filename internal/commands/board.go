package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/boardview"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
)

// boardColumn is one status column as printed by board and tasks move.
type boardColumn struct {
	Status models.TaskStatus `json:"status"`
	Label  string            `json:"label"`
	Tasks  []models.Task     `json:"tasks"`
}

func boardView(b board.Board) []boardColumn {
	cols := make([]boardColumn, 0, len(models.TaskStatuses))
	for _, st := range models.TaskStatuses {
		tasks := b.Column(st)
		if tasks == nil {
			tasks = []models.Task{}
		}
		cols = append(cols, boardColumn{Status: st, Label: st.Label(), Tasks: tasks})
	}
	return cols
}

func boardSummary(b board.Board) string {
	parts := make([]string, 0, len(models.TaskStatuses))
	for _, st := range models.TaskStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", st.Label(), len(b.Column(st))))
	}
	return strings.Join(parts, " · ")
}

// NewBoardCmd creates the board command.
func NewBoardCmd() *cobra.Command {
	var interactive bool
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "board [project-id]",
		Short: "Show a project's kanban board",
		Long: `Show a project's tasks grouped into status columns.

With --interactive the board opens full screen. Move between cards with the
arrow keys, press m to pick a card up and enter to drop it. The board
refreshes while the terminal has focus.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()

			pid, err := projectID(cmd, app, args)
			if err != nil {
				return err
			}

			if interactive {
				if !app.IsInteractive() {
					return output.ErrUsageHint("The interactive board needs a terminal", "Drop --interactive to print the board")
				}
				opts := []boardview.Option{boardview.WithPollInterval(poll)}
				if p, err := app.Hub.LoadProject(ctx, pid); err == nil {
					opts = append(opts, boardview.WithTitle(p.Name))
				}
				return runBoard(ctx, app.Hub, pid, opts...)
			}

			b, err := app.Hub.LoadBoard(ctx, pid)
			if err != nil {
				return err
			}
			if b.Len() == 0 {
				return app.OK(boardView(b), empty.NoTasks(pid).Options()...)
			}
			return app.OK(boardView(b),
				output.WithSummary(boardSummary(b)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "move", Cmd: "taskhub tasks move <task-id> --to IN_PROGRESS", Description: "Move a task",
				}),
			)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Open the full-screen board")
	cmd.Flags().DurationVar(&poll, "poll", 30*time.Second, "Refresh interval for the interactive board (0 disables)")

	return cmd
}
