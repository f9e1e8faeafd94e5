package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/output"
)

func TestPoolGetEmpty(t *testing.T) {
	p := NewPool("test", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	snap := p.Get()
	assert.Equal(t, StateEmpty, snap.State)
	assert.False(t, snap.HasData)
	assert.Equal(t, StatusIdle, p.Status().Kind)
}

func TestPoolFetchSuccess(t *testing.T) {
	p := NewPool("items", PoolConfig{FreshTTL: time.Minute}, func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	cmd := p.Fetch(context.Background())
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, PoolUpdatedMsg{Key: "items"}, msg)

	snap := p.Get()
	assert.Equal(t, StateFresh, snap.State)
	assert.True(t, snap.HasData)
	assert.Equal(t, []string{"a", "b"}, snap.Data)
	assert.Equal(t, uint64(1), p.Version())
}

func TestPoolFetchError(t *testing.T) {
	fetchErr := errors.New("network down")
	p := NewPool("items", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 0, fetchErr
	})

	msg := p.Fetch(context.Background())()
	assert.Equal(t, PoolUpdatedMsg{Key: "items"}, msg)

	snap := p.Get()
	assert.Equal(t, StateError, snap.State)
	assert.False(t, snap.HasData)
	assert.Equal(t, fetchErr, snap.Err)

	st := p.Status()
	assert.Equal(t, StatusError, st.Kind)
	assert.Equal(t, output.GenericMessage, st.Message)
}

func TestPoolFetchErrorPreservesExistingData(t *testing.T) {
	calls := 0
	p := NewPool("items", PoolConfig{}, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "good", nil
		}
		return "", output.ErrAPI(500, "Server exploded")
	})

	p.Fetch(context.Background())()
	assert.Equal(t, "good", p.Get().Data)

	p.Fetch(context.Background())()
	snap := p.Get()
	assert.Equal(t, StateError, snap.State)
	assert.True(t, snap.HasData)
	assert.Equal(t, "good", snap.Data)
	assert.Equal(t, "Server exploded", p.Status().Message)
}

func TestPoolFetchDedup(t *testing.T) {
	var count atomic.Int32
	started := make(chan struct{})
	proceed := make(chan struct{})

	p := NewPool("slow", PoolConfig{}, func(ctx context.Context) (int, error) {
		count.Add(1)
		close(started)
		<-proceed
		return 42, nil
	})

	cmd1 := p.Fetch(context.Background())
	require.NotNil(t, cmd1)

	done := make(chan struct{})
	go func() {
		cmd1()
		close(done)
	}()
	<-started

	assert.Nil(t, p.Fetch(context.Background()))

	close(proceed)
	<-done
	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 42, p.Get().Data)
}

func TestPoolFetchIfStale(t *testing.T) {
	p := NewPool("ttl", PoolConfig{FreshTTL: 50 * time.Millisecond}, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	cmd := p.FetchIfStale(context.Background())
	require.NotNil(t, cmd)
	cmd()

	assert.Nil(t, p.FetchIfStale(context.Background()))

	time.Sleep(60 * time.Millisecond)
	assert.NotNil(t, p.FetchIfStale(context.Background()))
}

func TestPoolFetchIfStaleNoTTL(t *testing.T) {
	p := NewPool("no-ttl", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	p.Fetch(context.Background())()

	assert.Nil(t, p.FetchIfStale(context.Background()))
}

func TestPoolInvalidate(t *testing.T) {
	p := NewPool("inv", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	p.Fetch(context.Background())()
	assert.Equal(t, StateFresh, p.Get().State)

	p.Invalidate()
	assert.Equal(t, StateStale, p.Get().State)
	assert.NotNil(t, p.FetchIfStale(context.Background()))
}

func TestPoolSetReturnsItemsUnchanged(t *testing.T) {
	p := NewPool[[]string]("direct", PoolConfig{}, nil)
	items := []string{"b", "a", "c"}
	p.Set(items)

	snap := p.Get()
	assert.Equal(t, StateFresh, snap.State)
	assert.True(t, snap.HasData)
	assert.Equal(t, items, snap.Data)
	assert.Equal(t, StatusIdle, p.Status().Kind)
	assert.Equal(t, uint64(1), p.Version())
}

func TestPoolClear(t *testing.T) {
	p := NewPool("clr", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	p.Fetch(context.Background())()
	gen := p.Generation()

	p.Clear()
	snap := p.Get()
	assert.Equal(t, StateEmpty, snap.State)
	assert.False(t, snap.HasData)
	assert.Equal(t, gen+1, p.Generation())
}

func TestPoolClearDiscardsInFlightFetch(t *testing.T) {
	proceed := make(chan struct{})
	p := NewPool("gen", PoolConfig{}, func(ctx context.Context) (int, error) {
		<-proceed
		return 99, nil
	})

	cmd := p.Fetch(context.Background())
	require.NotNil(t, cmd)

	p.Clear()
	p.Set(1)

	close(proceed)
	assert.Nil(t, cmd())
	assert.Equal(t, 1, p.Get().Data)
}

func TestPoolLoadDiscardedAfterClear(t *testing.T) {
	entered := make(chan struct{})
	proceed := make(chan struct{})
	p := NewPool("gen", PoolConfig{}, func(ctx context.Context) (string, error) {
		close(entered)
		<-proceed
		return "tenant-a", nil
	})

	errc := make(chan error, 1)
	go func() {
		_, err := p.Load(context.Background())
		errc <- err
	}()
	<-entered
	p.Clear()
	close(proceed)

	require.ErrorIs(t, <-errc, ErrDiscarded)
	assert.False(t, p.Get().HasData)
}

func TestPoolFailAfterClearIsIgnored(t *testing.T) {
	p := NewPool[int]("gen", PoolConfig{}, nil)
	gen := p.SetLoading()
	p.Clear()

	assert.False(t, p.Fail(gen, errors.New("late")))
	assert.Equal(t, StateEmpty, p.Get().State)
}

func TestPoolStatusTransitions(t *testing.T) {
	p := NewPool[int]("st", PoolConfig{}, nil)

	gen := p.SetLoading()
	assert.Equal(t, StatusLoading, p.Status().Kind)

	require.True(t, p.Fail(gen, output.ErrForbidden("Nope")))
	assert.Equal(t, Status{Kind: StatusError, Message: "Nope"}, p.Status())

	// The next dispatch resets the error.
	gen = p.SetLoading()
	assert.Equal(t, StatusLoading, p.Status().Kind)
	require.True(t, p.Commit(gen, func(int, bool) int { return 7 }))
	p.SetSuccess("Saved")
	assert.Equal(t, Status{Kind: StatusIdle, Success: "Saved"}, p.Status())

	p.Dismiss()
	assert.Equal(t, Status{Kind: StatusIdle}, p.Status())
}

func TestPoolSettleKeepsData(t *testing.T) {
	p := NewPool[int]("settle", PoolConfig{}, nil)
	p.Set(3)
	gen := p.SetLoading()
	require.True(t, p.Settle(gen))
	assert.Equal(t, StateFresh, p.Get().State)
	assert.Equal(t, 3, p.Get().Data)

	empty := NewPool[int]("settle-empty", PoolConfig{}, nil)
	require.True(t, empty.Settle(empty.SetLoading()))
	assert.Equal(t, StateEmpty, empty.Get().State)
}

func TestPoolTTLBasedStateTransition(t *testing.T) {
	p := NewPool("ttl", PoolConfig{FreshTTL: 20 * time.Millisecond}, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	p.Fetch(context.Background())()
	assert.Equal(t, StateFresh, p.Get().State)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateStale, p.Get().State)
}

func TestPoolStaleTTLExpiry(t *testing.T) {
	p := NewPool("stale", PoolConfig{
		FreshTTL: 20 * time.Millisecond,
		StaleTTL: 30 * time.Millisecond,
	}, func(ctx context.Context) (string, error) {
		return "data", nil
	})
	p.Fetch(context.Background())()
	assert.Equal(t, StateFresh, p.Get().State)

	time.Sleep(25 * time.Millisecond)
	snap := p.Get()
	assert.Equal(t, StateStale, snap.State)
	assert.Equal(t, "data", snap.Data)

	time.Sleep(30 * time.Millisecond)
	snap = p.Get()
	assert.Equal(t, StateEmpty, snap.State)
	assert.False(t, snap.HasData)
}

func TestPoolFetchSetsLoading(t *testing.T) {
	proceed := make(chan struct{})
	p := NewPool("load", PoolConfig{}, func(ctx context.Context) (int, error) {
		<-proceed
		return 1, nil
	})
	p.Set(0)

	cmd := p.Fetch(context.Background())
	require.NotNil(t, cmd)

	assert.Equal(t, StateLoading, p.Get().State)
	assert.True(t, p.Get().HasData)

	close(proceed)
	cmd()
	assert.Equal(t, StateFresh, p.Get().State)
}

func TestPoolPollInterval(t *testing.T) {
	p := NewPool[int]("poll", PoolConfig{
		PollBase: 10 * time.Second,
		PollBg:   30 * time.Second,
		PollMax:  2 * time.Minute,
	}, nil)

	assert.Equal(t, 10*time.Second, p.PollInterval())

	p.RecordMiss()
	assert.Equal(t, 20*time.Second, p.PollInterval())
	p.RecordMiss()
	assert.Equal(t, 40*time.Second, p.PollInterval())

	p.RecordHit()
	assert.Equal(t, 10*time.Second, p.PollInterval())

	p.SetFocused(false)
	assert.Equal(t, 30*time.Second, p.PollInterval())
}

func TestPoolPollIntervalMaxCap(t *testing.T) {
	p := NewPool[int]("cap", PoolConfig{
		PollBase: time.Second,
		PollMax:  5 * time.Second,
	}, nil)

	for range 10 {
		p.RecordMiss()
	}
	assert.Equal(t, 5*time.Second, p.PollInterval())
}

func TestPoolPollIntervalZeroBase(t *testing.T) {
	p := NewPool[int]("no-poll", PoolConfig{}, nil)
	assert.Equal(t, time.Duration(0), p.PollInterval())
}

func TestPoolMetricsRecordsFetches(t *testing.T) {
	m := NewPoolMetrics()
	calls := 0
	p := NewPool("metered", PoolConfig{}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("boom")
		}
		return calls, nil
	})
	p.SetMetrics(m)

	_, _ = p.Load(context.Background())
	_, _ = p.Load(context.Background())

	s := m.Summary()
	assert.Equal(t, 2, s.Fetches)
	assert.Equal(t, 1, s.Errors)
	require.Len(t, s.Collections, 1)
	assert.Equal(t, "metered", s.Collections[0].Key)
	assert.Equal(t, StateError, s.Collections[0].State)

	cols := s.ToMap()["collections"].([]map[string]any)
	assert.Equal(t, "error", cols[0]["state"])

	p.Clear()
	assert.Empty(t, m.Summary().Collections)
}
