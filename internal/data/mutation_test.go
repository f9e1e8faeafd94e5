package data

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
)

// fakeBoard is an in-memory gateway for board moves.
type fakeBoard struct {
	mu      sync.Mutex
	tasks   []models.Task
	moveErr error
	gate    chan struct{} // when set, MoveTask waits on it
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{tasks: []models.Task{
		{ID: "t1", Status: models.StatusTodo, Position: 0},
		{ID: "t2", Status: models.StatusTodo, Position: 1},
		{ID: "t3", Status: models.StatusInProgress, Position: 0},
	}}
}

func (f *fakeBoard) fetch(context.Context) (board.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return board.FromTasks(f.tasks), nil
}

func (f *fakeBoard) MoveTask(_ context.Context, id string, in api.MoveInput) (*models.Task, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	b, err := board.Move(board.FromTasks(f.tasks), id, in.Status, in.Position)
	if err != nil {
		return nil, err
	}
	f.tasks = b.Tasks()
	t, _ := b.Find(id)
	return &t, nil
}

func newBoardPool(f *fakeBoard) *MutatingPool[board.Board] {
	mp := NewMutatingPool("board", PoolConfig{}, f.fetch)
	_, _ = mp.Load(context.Background())
	return mp
}

func TestTaskMoveMutationApplyLocally(t *testing.T) {
	b := board.FromTasks(newFakeBoard().tasks)
	m := TaskMoveMutation{TaskID: "t1", To: models.StatusInProgress, Position: 1}

	next := m.ApplyLocally(b)
	assert.True(t, next.Placed("t1", models.StatusInProgress, 1))
	assert.True(t, b.Placed("t1", models.StatusTodo, 0), "input board untouched")
	assert.True(t, m.IsReflectedIn(next))
	assert.False(t, m.IsReflectedIn(b))

	unknown := TaskMoveMutation{TaskID: "nope", To: models.StatusDone}
	assert.Equal(t, b.Tasks(), unknown.ApplyLocally(b).Tasks())
}

func TestTaskMoveMutationReorderWithinColumn(t *testing.T) {
	b := board.FromTasks(newFakeBoard().tasks)
	m := TaskMoveMutation{TaskID: "t1", To: models.StatusTodo, Position: 1}

	assert.False(t, m.IsReflectedIn(b), "same column, old position")
	assert.True(t, m.IsReflectedIn(m.ApplyLocally(b)))

	far := TaskMoveMutation{TaskID: "t1", To: models.StatusInProgress, Position: 9}
	assert.True(t, far.IsReflectedIn(far.ApplyLocally(b)), "clamped to the end of the column")
}

func TestReorderStaysPendingUntilGatewayShowsIt(t *testing.T) {
	f := newFakeBoard()
	f.gate = make(chan struct{})
	mp := newBoardPool(f)

	cmd := mp.Apply(context.Background(), TaskMoveMutation{TaskID: "t1", To: models.StatusTodo, Position: 1, Client: f})
	require.True(t, mp.Get().Data.Placed("t1", models.StatusTodo, 1))

	// A refresh lands before the gateway has applied the reorder.
	_, err := mp.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, mp.Get().Data.Placed("t1", models.StatusTodo, 1), "pending reorder re-applied over the stale fetch")
	assert.Equal(t, 1, mp.Pending())

	close(f.gate)
	cmd()
	assert.Zero(t, mp.Pending())
	assert.True(t, mp.Get().Data.Placed("t1", models.StatusTodo, 1))
}

func TestMutatingPoolApplyShowsMoveBeforeRemote(t *testing.T) {
	f := newFakeBoard()
	f.gate = make(chan struct{})
	mp := newBoardPool(f)

	m := TaskMoveMutation{TaskID: "t1", To: models.StatusInProgress, Position: 1, Client: f}
	cmd := mp.Apply(context.Background(), m)
	require.NotNil(t, cmd)

	assert.True(t, mp.Get().Data.Placed("t1", models.StatusInProgress, 1))
	assert.Equal(t, 1, mp.Pending())

	close(f.gate)
	msg := cmd()
	assert.Equal(t, PoolUpdatedMsg{Key: "board"}, msg)
	assert.Equal(t, 0, mp.Pending())
	assert.True(t, mp.Get().Data.Placed("t1", models.StatusInProgress, 1))
}

func TestMutatingPoolApplyWaitSuccessMatchesRemote(t *testing.T) {
	f := newFakeBoard()
	mp := newBoardPool(f)

	err := mp.ApplyWait(context.Background(), TaskMoveMutation{TaskID: "t2", To: models.StatusTodo, Position: 0, Client: f})
	require.NoError(t, err)

	remote, _ := f.fetch(context.Background())
	assert.Equal(t, remote.Tasks(), mp.Get().Data.Tasks())
	assert.Equal(t, StateFresh, mp.Get().State)
	assert.Equal(t, 0, mp.Pending())
}

func TestMutatingPoolApplyWaitFailureRollsBack(t *testing.T) {
	f := newFakeBoard()
	f.moveErr = errors.New("conflict")
	mp := newBoardPool(f)
	before := mp.Get().Data.Tasks()

	err := mp.ApplyWait(context.Background(), TaskMoveMutation{TaskID: "t1", To: models.StatusDone, Position: 0, Client: f})
	require.Error(t, err)

	assert.Equal(t, before, mp.Get().Data.Tasks())
	assert.Equal(t, StateError, mp.Get().State)
	assert.Equal(t, 0, mp.Pending())
}

func TestMutatingPoolApplyFailureMessage(t *testing.T) {
	f := newFakeBoard()
	f.moveErr = errors.New("conflict")
	mp := newBoardPool(f)

	msg := mp.Apply(context.Background(), TaskMoveMutation{TaskID: "t1", To: models.StatusDone, Client: f})()
	errMsg, ok := msg.(MutationErrorMsg)
	require.True(t, ok)
	assert.Equal(t, "board", errMsg.Key)
	assert.True(t, mp.Get().Data.Placed("t1", models.StatusTodo, 0))
}

func TestMutatingPoolReconcileKeepsPendingMutations(t *testing.T) {
	f := newFakeBoard()
	f.gate = make(chan struct{})
	mp := newBoardPool(f)

	cmd := mp.Apply(context.Background(), TaskMoveMutation{TaskID: "t1", To: models.StatusDone, Position: 0, Client: f})

	// A poll lands while the move is in flight: the move stays visible.
	_, err := mp.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, mp.Get().Data.Placed("t1", models.StatusDone, 0))
	assert.Equal(t, 1, mp.Pending())

	close(f.gate)
	cmd()
	assert.Equal(t, 0, mp.Pending())
}

func TestMutatingPoolClearDropsPending(t *testing.T) {
	f := newFakeBoard()
	f.gate = make(chan struct{})
	mp := newBoardPool(f)

	cmd := mp.Apply(context.Background(), TaskMoveMutation{TaskID: "t1", To: models.StatusDone, Client: f})
	mp.Clear()
	close(f.gate)

	assert.Nil(t, cmd(), "refetch after clear is discarded")
	assert.Equal(t, 0, mp.Pending())
	assert.False(t, mp.Get().HasData)
}
