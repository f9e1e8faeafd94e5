// Package board groups tasks into kanban columns and computes moves.
package board

import (
	"slices"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// Board holds one ordered column per task status. Positions within a column
// are dense and zero-based.
type Board struct {
	columns map[models.TaskStatus][]models.Task
}

// FromTasks groups tasks by status, orders each column by position and
// renumbers it densely. Tasks with an unknown status are dropped.
func FromTasks(tasks []models.Task) Board {
	b := Board{columns: make(map[models.TaskStatus][]models.Task, len(models.TaskStatuses))}
	for _, t := range tasks {
		if !t.Status.Valid() {
			continue
		}
		b.columns[t.Status] = append(b.columns[t.Status], t)
	}
	for st, col := range b.columns {
		slices.SortStableFunc(col, func(a, b models.Task) int { return a.Position - b.Position })
		renumber(col)
		b.columns[st] = col
	}
	return b
}

// Column returns a copy of the tasks in status order.
func (b Board) Column(status models.TaskStatus) []models.Task {
	return slices.Clone(b.columns[status])
}

// Len returns the number of tasks on the board.
func (b Board) Len() int {
	n := 0
	for _, col := range b.columns {
		n += len(col)
	}
	return n
}

// Tasks flattens the board in column order.
func (b Board) Tasks() []models.Task {
	out := make([]models.Task, 0, b.Len())
	for _, st := range models.TaskStatuses {
		out = append(out, b.columns[st]...)
	}
	return out
}

// Find returns the task with the given ID.
func (b Board) Find(id string) (models.Task, bool) {
	for _, col := range b.columns {
		for _, t := range col {
			if t.ID == id {
				return t, true
			}
		}
	}
	return models.Task{}, false
}

// Move returns a new board with taskID moved to position toPos of column
// to. toPos is clamped to the destination column. Both the source and
// destination columns are renumbered. b is not modified.
func Move(b Board, taskID string, to models.TaskStatus, toPos int) (Board, error) {
	if !to.Valid() {
		return b, output.ErrValidation("status", "unknown status "+string(to))
	}
	task, ok := b.Find(taskID)
	if !ok {
		return b, output.ErrNotFound("Task", taskID)
	}

	next := b.clone()
	from := task.Status
	src := next.columns[from]
	idx := slices.IndexFunc(src, func(t models.Task) bool { return t.ID == taskID })
	src = slices.Delete(src, idx, idx+1)
	next.columns[from] = src

	dst := next.columns[to]
	toPos = min(max(toPos, 0), len(dst))
	task.Status = to
	dst = slices.Insert(dst, toPos, task)
	next.columns[to] = dst

	renumber(next.columns[from])
	renumber(next.columns[to])
	return next, nil
}

// Placed reports whether taskID sits at status/pos on b.
func (b Board) Placed(taskID string, status models.TaskStatus, pos int) bool {
	col := b.columns[status]
	return pos >= 0 && pos < len(col) && col[pos].ID == taskID
}

func (b Board) clone() Board {
	c := Board{columns: make(map[models.TaskStatus][]models.Task, len(b.columns))}
	for st, col := range b.columns {
		c.columns[st] = slices.Clone(col)
	}
	return c
}

func renumber(col []models.Task) {
	for i := range col {
		col[i].Position = i
	}
}
