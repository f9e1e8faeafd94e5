package data

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Mutation describes a two-phase optimistic change: a tentative local
// apply, then a remote apply that confirms it or triggers a revert.
type Mutation[T any] interface {
	// ApplyLocally returns current with the change applied. It must not
	// modify current.
	ApplyLocally(current T) T

	// ApplyRemotely performs the gateway operation.
	ApplyRemotely(ctx context.Context) error

	// IsReflectedIn returns true when remote data already contains
	// this mutation's effect (for pending-mutation pruning on re-fetch).
	IsReflectedIn(remote T) bool
}

// MutationErrorMsg is sent when a mutation's remote apply fails.
type MutationErrorMsg struct {
	Key string
	Err error
}

type pendingMutation[T any] struct {
	id       uint64
	mutation Mutation[T]
}

// MutatingPool extends Pool with optimistic mutation support.
// Pending mutations are re-applied on top of every fetched snapshot until
// the gateway confirms or rejects them.
type MutatingPool[T any] struct {
	*Pool[T]
	pendingMutations []pendingMutation[T]
	lastRemoteData   *T // last known remote state before local mutations
	hasRemoteData    bool
	mutSeq           uint64
}

// NewMutatingPool creates a MutatingPool with the given key, config, and fetch function.
func NewMutatingPool[T any](key string, config PoolConfig, fetchFn FetchFunc[T]) *MutatingPool[T] {
	return &MutatingPool[T]{
		Pool: NewPool[T](key, config, fetchFn),
	}
}

// Pending returns the number of unconfirmed mutations.
func (mp *MutatingPool[T]) Pending() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.pendingMutations)
}

// begin applies mutation locally and records it as pending.
func (mp *MutatingPool[T]) begin(mutation Mutation[T]) (gen, mid uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if !mp.hasRemoteData && mp.snapshot.HasData {
		cp := mp.snapshot.Data
		mp.lastRemoteData = &cp
		mp.hasRemoteData = true
	}

	mp.mutSeq++
	mp.pendingMutations = append(mp.pendingMutations, pendingMutation[T]{id: mp.mutSeq, mutation: mutation})
	if mp.snapshot.HasData {
		mp.snapshot.Data = mutation.ApplyLocally(mp.snapshot.Data)
		mp.snapshot.State = StateFresh
		mp.snapshot.FetchedAt = time.Now()
		mp.snapshot.Err = nil
		mp.snapshot.Success = ""
		mp.version++
	}
	return mp.generation, mp.mutSeq
}

// ApplyWait runs a mutation to completion:
//  1. applies it locally (visible to Get immediately)
//  2. applies it remotely
//  3. on success, drops it from the pending set and re-fetches, replacing
//     the optimistic state with the authoritative one
//  4. on failure, rolls it back, records the error and re-fetches so the
//     cache converges on the gateway's view
//
// The remote error, if any, is returned. A failed re-fetch after a
// successful remote apply leaves the pool stale rather than failing the call.
func (mp *MutatingPool[T]) ApplyWait(ctx context.Context, mutation Mutation[T]) error {
	gen, mid := mp.begin(mutation)

	if err := mutation.ApplyRemotely(ctx); err != nil {
		mp.rollback(gen, mid)
		mp.refetch(ctx, gen)
		mp.mu.Lock()
		if mp.generation == gen {
			mp.snapshot.State = StateError
			mp.snapshot.Err = err
		}
		mp.mu.Unlock()
		return err
	}

	mp.confirm(gen, mid)
	if !mp.refetch(ctx, gen) {
		mp.Invalidate()
	}
	return nil
}

// Apply is the asynchronous form of ApplyWait for the interactive board.
// The local apply happens before Apply returns.
func (mp *MutatingPool[T]) Apply(ctx context.Context, mutation Mutation[T]) tea.Cmd {
	gen, mid := mp.begin(mutation)
	key := mp.key
	return func() tea.Msg {
		if err := mutation.ApplyRemotely(ctx); err != nil {
			mp.rollback(gen, mid)
			mp.refetch(ctx, gen)
			return MutationErrorMsg{Key: key, Err: err}
		}
		mp.confirm(gen, mid)
		if !mp.refetch(ctx, gen) {
			if mp.Generation() != gen {
				return nil
			}
			mp.Invalidate()
		}
		return PoolUpdatedMsg{Key: key}
	}
}

// Load overrides Pool.Load to reconcile pending mutations after a
// successful fetch rather than overwriting them.
func (mp *MutatingPool[T]) Load(ctx context.Context) (T, error) {
	return mp.load(ctx, mp.SetLoading())
}

func (mp *MutatingPool[T]) load(ctx context.Context, gen uint64) (T, error) {
	start := time.Now()
	data, err := mp.fetchFn(ctx)
	mp.record(start, err)
	if err != nil {
		mp.Fail(gen, err)
		var zero T
		return zero, err
	}
	if !mp.reconcile(gen, data) {
		var zero T
		return zero, ErrDiscarded
	}
	return mp.Get().Data, nil
}

// Fetch overrides Pool.Fetch to route through MutatingPool.Load.
func (mp *MutatingPool[T]) Fetch(ctx context.Context) tea.Cmd {
	gen, ok := mp.startFetch()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		if _, err := mp.load(ctx, gen); errors.Is(err, ErrDiscarded) {
			return nil
		}
		return PoolUpdatedMsg{Key: mp.key}
	}
}

// FetchIfStale overrides Pool.FetchIfStale to route through MutatingPool.Fetch.
func (mp *MutatingPool[T]) FetchIfStale(ctx context.Context) tea.Cmd {
	if mp.isFreshOrFetching() {
		return nil
	}
	return mp.Fetch(ctx)
}

// Clear overrides Pool.Clear to also reset mutation state.
func (mp *MutatingPool[T]) Clear() {
	mp.mu.Lock()
	m := mp.metrics
	mp.clearLocked()
	mp.pendingMutations = nil
	mp.lastRemoteData = nil
	mp.hasRemoteData = false
	mp.mu.Unlock()
	if m != nil {
		m.forget(mp.key)
	}
}

func (mp *MutatingPool[T]) refetch(ctx context.Context, gen uint64) bool {
	start := time.Now()
	data, err := mp.fetchFn(ctx)
	mp.record(start, err)
	if err != nil {
		return false
	}
	return mp.reconcile(gen, data)
}

// reconcile rebuilds local state from remote data, re-applying any
// pending mutations not yet reflected in the server response.
func (mp *MutatingPool[T]) reconcile(gen uint64, remoteData T) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.generation != gen {
		return false
	}

	cp := remoteData
	mp.lastRemoteData = &cp
	mp.hasRemoteData = true

	remaining := mp.pendingMutations[:0]
	for _, pm := range mp.pendingMutations {
		if !pm.mutation.IsReflectedIn(remoteData) {
			remaining = append(remaining, pm)
		}
	}
	mp.pendingMutations = remaining

	data := remoteData
	for _, pm := range mp.pendingMutations {
		data = pm.mutation.ApplyLocally(data)
	}

	mp.fetching = false
	mp.setLocked(data)
	return true
}

// confirm drops a mutation the gateway accepted.
func (mp *MutatingPool[T]) confirm(gen, mutationID uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.generation != gen {
		return
	}
	mp.dropLocked(mutationID)
}

// rollback removes a failed mutation and restores from the last remote state.
func (mp *MutatingPool[T]) rollback(gen, mutationID uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.generation != gen {
		return
	}
	mp.dropLocked(mutationID)

	if mp.hasRemoteData {
		data := *mp.lastRemoteData
		for _, pm := range mp.pendingMutations {
			data = pm.mutation.ApplyLocally(data)
		}
		mp.snapshot.Data = data
		mp.snapshot.State = StateFresh
		mp.snapshot.FetchedAt = time.Now()
		mp.snapshot.Err = nil
		mp.version++
	}
}

func (mp *MutatingPool[T]) dropLocked(mutationID uint64) {
	remaining := mp.pendingMutations[:0]
	for _, pm := range mp.pendingMutations {
		if pm.id != mutationID {
			remaining = append(remaining, pm)
		}
	}
	mp.pendingMutations = remaining
}
