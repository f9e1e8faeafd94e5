package boardview

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

const pid = gatewaytest.ProjectID

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newLoadedModel(t *testing.T, opts ...Option) (*Model, *data.Hub, *gatewaytest.Gateway) {
	t.Helper()
	g := gatewaytest.New(t)
	h := data.NewHub(g.Client())
	t.Cleanup(h.Shutdown)

	_, err := h.LoadBoard(context.Background(), pid)
	require.NoError(t, err)

	opts = append([]Option{WithTheme(tui.NoColorTheme()), WithPollInterval(0), WithTitle("Launch")}, opts...)
	m := New(h, pid, opts...)
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	return m, h, g
}

func TestBoardRendersColumns(t *testing.T) {
	m, _, _ := newLoadedModel(t)

	out := m.View()
	assert.Contains(t, out, "Launch")
	assert.Contains(t, out, "To Do (2)")
	assert.Contains(t, out, "In Progress (1)")
	assert.Contains(t, out, "In Review (0)")
	assert.Contains(t, out, "Done (1)")
	assert.Contains(t, out, "▸ Task t1")
	assert.Contains(t, out, "(empty)")
}

func TestBoardShowsSpinnerUntilLoaded(t *testing.T) {
	g := gatewaytest.New(t)
	h := data.NewHub(g.Client())
	t.Cleanup(h.Shutdown)

	m := New(h, pid, WithTheme(tui.NoColorTheme()), WithPollInterval(0))
	require.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Loading board")

	_, cmd := m.Update(runes("m"))
	assert.Nil(t, cmd)
	assert.False(t, m.moving)

	_, err := h.LoadBoard(context.Background(), pid)
	require.NoError(t, err)
	m.Update(data.PoolUpdatedMsg{Key: m.pool.Key()})
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "Task t1")
}

func TestBoardNavigation(t *testing.T) {
	m, _, _ := newLoadedModel(t)

	m.Update(runes("j"))
	require.NotNil(t, m.kanban.FocusedCard())
	assert.Equal(t, "t2", m.kanban.FocusedCard().ID)

	m.Update(runes("l"))
	assert.Equal(t, 1, m.kanban.FocusedColumn())
	assert.Equal(t, "t3", m.kanban.FocusedCard().ID)

	m.Update(runes("l"))
	assert.Nil(t, m.kanban.FocusedCard(), "in review is empty")

	m.Update(runes("h"))
	m.Update(runes("h"))
	m.Update(runes("h"))
	assert.Equal(t, 0, m.kanban.FocusedColumn())
}

func TestBoardMoveIsOptimisticThenConfirmed(t *testing.T) {
	m, h, g := newLoadedModel(t)

	m.Update(runes("m"))
	require.True(t, m.moving)
	assert.Contains(t, m.View(), "MOVE")

	m.Update(runes("l"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.moving)

	// Visible before the gateway has been asked.
	assert.True(t, h.Board(pid).Get().Data.Placed("t1", models.StatusInProgress, 1))
	assert.Equal(t, "t1", m.kanban.FocusedCard().ID)
	assert.Equal(t, 1, m.kanban.FocusedColumn())
	assert.Contains(t, m.View(), "Saving...")

	msg := cmd()
	require.IsType(t, data.PoolUpdatedMsg{}, msg)
	m.Update(msg)

	task, _ := g.Task("t1")
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, 1, task.Position)
	assert.Equal(t, 0, h.Board(pid).Pending())
	assert.Contains(t, m.View(), "In Progress (2)")
}

func TestBoardMoveCancel(t *testing.T) {
	m, h, _ := newLoadedModel(t)

	m.Update(runes("m"))
	m.Update(runes("l"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.moving)
	assert.True(t, h.Board(pid).Get().Data.Placed("t1", models.StatusTodo, 0))

	// Confirming onto the source column is a no-op.
	m.Update(runes("m"))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestBoardReorderWithinColumn(t *testing.T) {
	m, h, g := newLoadedModel(t)

	_, cmd := m.Update(runes("J"))
	require.NotNil(t, cmd)
	assert.True(t, h.Board(pid).Get().Data.Placed("t1", models.StatusTodo, 1))
	assert.Equal(t, 1, m.kanban.FocusedIndex())

	m.Update(cmd())
	task, _ := g.Task("t1")
	assert.Equal(t, 1, task.Position)

	// Already last: nothing to do.
	_, cmd = m.Update(runes("J"))
	assert.Nil(t, cmd)
}

func TestBoardMoveFailureRollsBack(t *testing.T) {
	m, h, g := newLoadedModel(t)
	g.FailNextWith(http.MethodPatch, "/tasks/t1/move", http.StatusConflict, "Board changed", "")

	m.Update(runes("m"))
	m.Update(runes("l"))
	m.Update(runes("l"))
	m.Update(runes("l"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, h.Board(pid).Get().Data.Placed("t1", models.StatusDone, 1))

	msg := cmd()
	require.IsType(t, data.MutationErrorMsg{}, msg)
	m.Update(msg)

	assert.True(t, h.Board(pid).Get().Data.Placed("t1", models.StatusTodo, 0))
	assert.Contains(t, m.View(), "Board changed")
	assert.Contains(t, m.View(), "To Do (2)")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "Board changed")
	assert.Nil(t, h.Board(pid).Get().Err)
}

func TestBoardPollBacksOffWhenUnchanged(t *testing.T) {
	m, _, _ := newLoadedModel(t, WithPollInterval(time.Hour))
	assert.Equal(t, time.Hour, m.poller.Interval(pollTag))

	_, cmd := m.Update(data.PollMsg{Tag: "other"})
	assert.Nil(t, cmd)

	_, cmd = m.Update(data.PollMsg{Tag: pollTag})
	require.NotNil(t, cmd)
	assert.True(t, m.polling)

	m.Update(data.PoolUpdatedMsg{Key: m.pool.Key()})
	assert.False(t, m.polling)
	assert.Equal(t, 2*time.Hour, m.poller.Interval(pollTag))
	assert.Contains(t, m.View(), "refresh 2h0m0s")
}

func TestBoardQuit(t *testing.T) {
	m, _, _ := newLoadedModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKanbanTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "héllo", truncate("héllo", 5))
}

func TestKanbanDetailLine(t *testing.T) {
	assert.Equal(t, "", detailLine(Card{Priority: models.PriorityMedium}))
	assert.Equal(t, "urgent · Ada · due Mar 3", detailLine(Card{Priority: models.PriorityUrgent, Assignee: "Ada", Due: "Mar 3"}))
}
