package data

import (
	"context"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
)

// TaskMover is the gateway call behind TaskMoveMutation.
type TaskMover interface {
	MoveTask(ctx context.Context, id string, in api.MoveInput) (*models.Task, error)
}

// TaskMoveMutation moves a task to a column and zero-based position.
// Implements Mutation[board.Board] for use with MutatingPool.
type TaskMoveMutation struct {
	TaskID   string
	To       models.TaskStatus
	Position int
	Client   TaskMover
}

// ApplyLocally moves the task on a copy of the board. Unknown tasks leave
// the board unchanged.
func (m TaskMoveMutation) ApplyLocally(b board.Board) board.Board {
	next, err := board.Move(b, m.TaskID, m.To, m.Position)
	if err != nil {
		return b
	}
	return next
}

// ApplyRemotely sends the move to the gateway.
func (m TaskMoveMutation) ApplyRemotely(ctx context.Context) error {
	_, err := m.Client.MoveTask(ctx, m.TaskID, api.MoveInput{Status: m.To, Position: m.Position})
	return err
}

// IsReflectedIn reports whether the task sits at the target column and
// position. A position past the end of the column counts as the last slot,
// the way board.Move clamps it.
func (m TaskMoveMutation) IsReflectedIn(b board.Board) bool {
	n := len(b.Column(m.To))
	if n == 0 {
		return false
	}
	return b.Placed(m.TaskID, m.To, min(max(m.Position, 0), n-1))
}
