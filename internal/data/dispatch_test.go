package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/output"
)

type recordingHooks struct {
	observability.NopHooks
	started []observability.OperationInfo
	ended   []error
}

func (h *recordingHooks) OnOperationStart(ctx context.Context, op observability.OperationInfo) context.Context {
	h.started = append(h.started, op)
	return ctx
}

func (h *recordingHooks) OnOperationEnd(_ context.Context, _ observability.OperationInfo, err error, _ time.Duration) {
	h.ended = append(h.ended, err)
}

func TestDispatchSuccess(t *testing.T) {
	p := NewPool[[]string]("names", PoolConfig{}, nil)
	p.Set([]string{"a"})

	var during StatusKind
	resp, err := Dispatch(context.Background(), p,
		func(context.Context) (string, error) {
			during = p.Status().Kind
			return "b", nil
		},
		func(cur []string, _ bool, s string) []string { return append(cur, s) },
		WithSuccess("Added"))

	require.NoError(t, err)
	assert.Equal(t, "b", resp)
	assert.Equal(t, StatusLoading, during)
	assert.Equal(t, []string{"a", "b"}, p.Get().Data)
	assert.Equal(t, Status{Kind: StatusIdle, Success: "Added"}, p.Status())
}

func TestDispatchFailureKeepsDataAndCarriesReason(t *testing.T) {
	p := NewPool[int]("n", PoolConfig{}, nil)
	p.Set(1)
	gwErr := &output.Error{Code: output.CodeAPI, Message: "Workspace still has other members", Reason: "WORKSPACE_HAS_MEMBERS"}

	_, err := Dispatch(context.Background(), p,
		func(context.Context) (struct{}, error) { return struct{}{}, gwErr },
		func(int, bool, struct{}) int { return 0 })

	require.Error(t, err)
	assert.Equal(t, "WORKSPACE_HAS_MEMBERS", output.ReasonOf(err))
	assert.Equal(t, 1, p.Get().Data)
	assert.Equal(t, Status{Kind: StatusError, Message: gwErr.Message, Reason: "WORKSPACE_HAS_MEMBERS"}, p.Status())
}

func TestDispatchUnknownErrorGetsGenericMessage(t *testing.T) {
	p := NewPool[int]("n", PoolConfig{}, nil)
	_, err := Dispatch(context.Background(), p,
		func(context.Context) (int, error) { return 0, errors.New("json: cannot unmarshal") }, Replace[int])

	require.Error(t, err)
	assert.Equal(t, output.GenericMessage, err.Error())
	assert.Equal(t, output.GenericMessage, p.Status().Message)
}

func TestDispatchNilApplySettles(t *testing.T) {
	p := NewPool[int]("n", PoolConfig{}, nil)
	p.Set(5)
	v0 := p.Version()

	_, err := Dispatch(context.Background(), p,
		func(context.Context) (struct{}, error) { return struct{}{}, nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, v0, p.Version())
	assert.Equal(t, StateFresh, p.Get().State)
}

func TestDispatchDiscardedAfterClear(t *testing.T) {
	p := NewPool[string]("scoped", PoolConfig{}, nil)
	_, err := Dispatch(context.Background(), p,
		func(context.Context) (string, error) {
			p.Clear()
			return "tenant-a", nil
		}, Replace[string])

	require.ErrorIs(t, err, ErrDiscarded)
	assert.False(t, p.Get().HasData)
}

func TestDispatchReportsOperation(t *testing.T) {
	hooks := &recordingHooks{}
	op := observability.OperationInfo{Resource: "Projects", Action: "Create", IsMutation: true}
	p := NewPool[int]("n", PoolConfig{}, nil)

	_, _ = Dispatch(context.Background(), p,
		func(context.Context) (int, error) { return 1, nil }, Replace[int], WithOperation(hooks, op))
	_, _ = Dispatch(context.Background(), p,
		func(context.Context) (int, error) { return 0, output.ErrForbidden("no") }, Replace[int], WithOperation(hooks, op))

	require.Len(t, hooks.started, 2)
	assert.Equal(t, op, hooks.started[0])
	require.Len(t, hooks.ended, 2)
	assert.NoError(t, hooks.ended[0])
	assert.Error(t, hooks.ended[1])
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "Nope", MessageOf(output.ErrForbidden("Nope")))
	assert.Equal(t, "Request canceled", MessageOf(context.Canceled))
	assert.Equal(t, output.GenericMessage, MessageOf(errors.New("raw parse error")))
}

func TestAllWaitsForEveryCall(t *testing.T) {
	var finished atomic.Int32
	errA := errors.New("a failed")

	err := All(context.Background(),
		func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
			return nil
		},
		func(context.Context) error {
			finished.Add(1)
			return errA
		},
	)

	assert.ErrorIs(t, err, errA)
	assert.Equal(t, int32(2), finished.Load())
}

func TestAllReturnsFirstErrorInArgumentOrder(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	err := All(context.Background(),
		func(context.Context) error { time.Sleep(10 * time.Millisecond); return first },
		func(context.Context) error { return second },
	)
	assert.ErrorIs(t, err, first)
}

func TestFanOut(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	var inflight, peak atomic.Int32

	results := FanOut(context.Background(), keys, func(_ context.Context, k string) (string, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		if k == "c" {
			return "", errors.New("c failed")
		}
		return k + k, nil
	})

	require.Len(t, results, len(keys))
	for i, r := range results {
		assert.Equal(t, keys[i], r.Key)
	}
	assert.Equal(t, "aa", results[0].Data)
	assert.Error(t, results[2].Err)
	assert.LessOrEqual(t, peak.Load(), int32(maxConcurrent))
}

func TestFanOutCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := FanOut(ctx, []string{"a"}, func(context.Context, string) (int, error) { return 1, nil })
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Nil(t, FanOut[int](context.Background(), nil, nil))
}
