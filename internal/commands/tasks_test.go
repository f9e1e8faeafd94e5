package commands

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func columnIDs(cols []boardColumn, st models.TaskStatus) []string {
	for _, c := range cols {
		if c.Status == st {
			ids := make([]string, len(c.Tasks))
			for i, t := range c.Tasks {
				ids[i] = t.ID
			}
			return ids
		}
	}
	return nil
}

func TestTasksMove(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewTasksCmd(), []string{"move", "t1", "--to", "DONE", "--position", "0"})
	require.NoError(t, err)

	cols := decode[[]boardColumn](t, res.Data)
	require.Len(t, cols, len(models.TaskStatuses))
	assert.Equal(t, []string{"t2"}, columnIDs(cols, models.StatusTodo))
	assert.Equal(t, []string{"t3"}, columnIDs(cols, models.StatusInProgress))
	assert.Equal(t, []string{}, columnIDs(cols, models.StatusInReview))
	assert.Equal(t, []string{"t1", "t4"}, columnIDs(cols, models.StatusDone))
	assert.Equal(t, "Moved Task t1 to Done at 0", res.Summary)

	stored, ok := env.gw.Task("t1")
	require.True(t, ok)
	assert.Equal(t, models.StatusDone, stored.Status)
	assert.Equal(t, 0, stored.Position)
	moved, _ := env.gw.Task("t4")
	assert.Equal(t, 1, moved.Position)
}

func TestTasksMoveWithProjectFlagSkipsTaskLookup(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewTasksCmd(), []string{"move", "t2", "--to", "in_progress", "--position", "5"},
		withProject(gatewaytest.ProjectID))
	require.NoError(t, err)

	assert.Zero(t, env.gw.Count(http.MethodGet, "/tasks/t2"))
	stored, _ := env.gw.Task("t2")
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Equal(t, 1, stored.Position)
}

func TestTasksMoveFailureKeepsGatewayBoard(t *testing.T) {
	env := newTestEnv(t)
	env.gw.FailNext(http.MethodPatch, "/tasks/t1/move", http.StatusForbidden, "")

	_, err := env.run(t, NewTasksCmd(), []string{"move", "t1", "--to", "DONE"})
	require.Error(t, err)
	assert.Equal(t, output.CodeForbidden, output.AsError(err).Code)

	stored, _ := env.gw.Task("t1")
	assert.Equal(t, models.StatusTodo, stored.Status)
}

func TestTasksMoveValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewTasksCmd(), []string{"move", "t1"})
	require.Error(t, err)
	assert.Equal(t, "Target status required", output.AsError(err).Message)

	_, err = env.run(t, NewTasksCmd(), []string{"move", "t1", "--to", "ARCHIVED"})
	require.Error(t, err)

	_, err = env.run(t, NewTasksCmd(), []string{"move"})
	require.Error(t, err)
	assert.Equal(t, "Task ID required", output.AsError(err).Message)
}

func TestTasksListFilters(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewTasksCmd(), []string{"list", "--status", "TODO"}, withProject(gatewaytest.ProjectID))
	require.NoError(t, err)

	tasks := decode[[]models.Task](t, res.Data)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, models.StatusTodo, task.Status)
	}
	assert.Equal(t, "Page 1 of 1 (2 total)", res.Summary)
}

func TestTasksListNoMatches(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewTasksCmd(), []string{"list", gatewaytest.ProjectID, "--search", "nothing-like-this"})
	require.NoError(t, err)
	assert.Empty(t, decode[[]models.Task](t, res.Data))
	assert.NotContains(t, res.Summary, "Page")
}

func TestTasksCreateAndShow(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewTasksCmd(), []string{"create", gatewaytest.ProjectID,
		"--title", "Write launch notes", "--priority", "HIGH", "--due", "2026-02-01"})
	require.NoError(t, err)

	created := decode[models.Task](t, res.Data)
	assert.Equal(t, "Write launch notes", created.Title)
	assert.Equal(t, models.PriorityHigh, created.Priority)
	assert.Equal(t, models.StatusTodo, created.Status)
	assert.Equal(t, 2, created.Position)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-02-01", created.DueDate.Format("2006-01-02"))

	res, err = env.run(t, NewTasksCmd(), []string{"show", created.ID})
	require.NoError(t, err)
	assert.Equal(t, "Write launch notes [To Do]", res.Summary)
}

func TestTasksCreateRejectsBadDue(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewTasksCmd(), []string{"create", gatewaytest.ProjectID, "--title", "x", "--due", "someday"})
	require.Error(t, err)
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)
}

func TestTasksDeleteNeedsForceWhenPiped(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewTasksCmd(), []string{"delete", "t1"})
	require.Error(t, err)

	res, err := env.run(t, NewTasksCmd(), []string{"delete", "t1", "--force"})
	require.NoError(t, err)
	assert.Equal(t, "Task deleted", res.Summary)
	_, ok := env.gw.Task("t1")
	assert.False(t, ok)
}

func TestBoardCommand(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewBoardCmd(), []string{gatewaytest.ProjectID})
	require.NoError(t, err)

	cols := decode[[]boardColumn](t, res.Data)
	assert.Equal(t, []string{"t1", "t2"}, columnIDs(cols, models.StatusTodo))
	assert.Equal(t, "To Do 2 · In Progress 1 · In Review 0 · Done 1", res.Summary)
}

func TestBoardInteractiveNeedsTerminal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewBoardCmd(), []string{gatewaytest.ProjectID, "--interactive"})
	require.Error(t, err)
	assert.Contains(t, output.AsError(err).Message, "needs a terminal")
}
