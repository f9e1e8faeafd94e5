package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func task(id string, st models.TaskStatus, pos int) models.Task {
	return models.Task{ID: id, ProjectID: "p1", Title: id, Status: st, Priority: models.PriorityMedium, Position: pos}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func sampleBoard() Board {
	return FromTasks([]models.Task{
		task("a", models.StatusTodo, 0),
		task("b", models.StatusTodo, 1),
		task("c", models.StatusInProgress, 0),
		task("d", models.StatusInProgress, 1),
		task("e", models.StatusInProgress, 2),
	})
}

func TestFromTasksOrdersAndRenumbers(t *testing.T) {
	b := FromTasks([]models.Task{
		task("x", models.StatusDone, 7),
		task("y", models.StatusDone, 3),
		task("z", "ARCHIVED", 0),
	})
	col := b.Column(models.StatusDone)
	assert.Equal(t, []string{"y", "x"}, ids(col))
	assert.Equal(t, 0, col[0].Position)
	assert.Equal(t, 1, col[1].Position)
	assert.Equal(t, 2, b.Len())
}

func TestMoveAcrossColumns(t *testing.T) {
	b := sampleBoard()
	next, err := Move(b, "a", models.StatusInProgress, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, ids(next.Column(models.StatusTodo)))
	assert.Equal(t, []string{"c", "d", "a", "e"}, ids(next.Column(models.StatusInProgress)))

	moved, ok := next.Find("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusInProgress, moved.Status)
	assert.Equal(t, 2, moved.Position)
	assert.Equal(t, 0, next.Column(models.StatusTodo)[0].Position)
	assert.Equal(t, 3, next.Column(models.StatusInProgress)[3].Position)

	// original untouched
	assert.Equal(t, []string{"a", "b"}, ids(b.Column(models.StatusTodo)))
}

func TestMoveWithinColumn(t *testing.T) {
	next, err := Move(sampleBoard(), "e", models.StatusInProgress, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c", "d"}, ids(next.Column(models.StatusInProgress)))
	assert.True(t, next.Placed("e", models.StatusInProgress, 0))
}

func TestMoveClampsPosition(t *testing.T) {
	next, err := Move(sampleBoard(), "a", models.StatusDone, 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(next.Column(models.StatusDone)))

	next, err = Move(sampleBoard(), "a", models.StatusInProgress, -4)
	require.NoError(t, err)
	assert.True(t, next.Placed("a", models.StatusInProgress, 0))
}

func TestMoveErrors(t *testing.T) {
	_, err := Move(sampleBoard(), "missing", models.StatusDone, 0)
	assert.Equal(t, output.CodeNotFound, output.AsError(err).Code)

	_, err = Move(sampleBoard(), "a", "BLOCKED", 0)
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)
}

func TestTasksInColumnOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(sampleBoard().Tasks()))
}
