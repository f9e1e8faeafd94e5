package data

import (
	"context"
	"time"

	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/output"
)

var errNothingToUpdate = output.ErrUsage("Nothing to update")

// LoadBoard fetches a project's board, replacing the cached one.
func (h *Hub) LoadBoard(ctx context.Context, projectID string) (board.Board, error) {
	r := h.EnsureProject(projectID)
	ctx, cancel := bind(ctx, r)
	defer cancel()
	return h.Board(projectID).Load(ctx)
}

// MoveTask moves a task to status at zero-based position. The cached board
// shows the move immediately; once the gateway answers, the board is
// re-fetched so it matches the gateway's ordering, whether the move
// succeeded or was rolled back.
func (h *Hub) MoveTask(ctx context.Context, projectID, taskID string, to models.TaskStatus, position int) (_ board.Board, err error) {
	if !to.Valid() {
		_, err := models.ParseStatus(string(to))
		return board.Board{}, err
	}
	if position < 0 {
		return board.Board{}, output.ErrValidation("position", "must be zero or greater")
	}

	r := h.EnsureProject(projectID)
	ctx, cancel := bind(ctx, r)
	defer cancel()

	op := observability.OperationInfo{Resource: "Tasks", Action: "Move", IsMutation: true, Scope: r.Name()}
	ctx = h.hooks.OnOperationStart(ctx, op)
	start := time.Now()
	defer func() { h.hooks.OnOperationEnd(ctx, op, err, time.Since(start)) }()

	pool := h.Board(projectID)
	if !pool.Get().HasData {
		if _, err := pool.Load(ctx); err != nil {
			return board.Board{}, err
		}
	}
	if _, ok := pool.Get().Data.Find(taskID); !ok {
		return pool.Get().Data, output.ErrNotFound("Task", taskID)
	}

	m := TaskMoveMutation{TaskID: taskID, To: to, Position: position, Client: h.client}
	if err = pool.ApplyWait(ctx, m); err != nil {
		err = dispatchError(err)
	}
	if list := h.cachedTasks(); list != nil {
		list.Invalidate()
	}
	return pool.Get().Data, err
}
