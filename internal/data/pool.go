package data

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrDiscarded is returned when a response arrives after its pool was
// cleared. The response is dropped and the cleared state stands.
var ErrDiscarded = errors.New("response discarded: scope changed")

// PoolUpdatedMsg is sent when a pool's snapshot changes.
// Views match on Key to identify which pool updated, then read
// typed data via the pool's Get() method.
type PoolUpdatedMsg struct {
	Key string
}

// FetchFunc retrieves data for a pool.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// PoolConfig configures a Pool's timing behavior.
type PoolConfig struct {
	FreshTTL time.Duration // how long data is "fresh" (0 = no expiry)
	StaleTTL time.Duration // how long stale data is served during revalidation
	PollBase time.Duration // base polling interval when focused (0 = no auto-poll)
	PollBg   time.Duration // background polling interval when blurred
	PollMax  time.Duration // max interval after consecutive misses
}

// Pooler is the non-generic interface for pool lifecycle management.
// Realm uses this to manage pools of different types uniformly.
type Pooler interface {
	Invalidate()
	Clear()
}

// Pool is a typed cache for one logical collection, with its request status.
//
// Writes go through Set (after a successful response) or through the
// dispatch transitions SetLoading, Commit and Fail. Every transition is
// tagged with the pool's generation; Clear bumps the generation so that a
// response started before a scope change is dropped when it lands.
type Pool[T any] struct {
	mu         sync.RWMutex
	key        string
	snapshot   Snapshot[T]
	config     PoolConfig
	fetchFn    FetchFunc[T]
	version    uint64 // incremented on every data change
	generation uint64 // incremented on Clear, used to discard stale responses
	fetching   bool
	missCount  int
	focused    bool
	metrics    *PoolMetrics
}

// NewPool creates a Pool with the given key, config, and fetch function.
func NewPool[T any](key string, config PoolConfig, fetchFn FetchFunc[T]) *Pool[T] {
	return &Pool[T]{
		key:     key,
		config:  config,
		fetchFn: fetchFn,
		focused: true,
	}
}

// Key returns the pool's identifier.
func (p *Pool[T]) Key() string { return p.key }

// Get returns the current snapshot. Never blocks on I/O.
// A snapshot stored as Fresh is returned as Stale once FreshTTL has
// elapsed, and as empty once StaleTTL has also elapsed.
func (p *Pool[T]) Get() Snapshot[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := p.snapshot
	if snap.HasData && p.config.FreshTTL > 0 {
		age := time.Since(snap.FetchedAt)
		if age >= p.config.FreshTTL {
			if p.config.StaleTTL > 0 && age >= p.config.FreshTTL+p.config.StaleTTL {
				var zero T
				snap.Data = zero
				snap.HasData = false
				snap.State = StateEmpty
			} else if snap.State == StateFresh {
				snap.State = StateStale
			}
		}
	}
	return snap
}

// Status returns the user-facing request status.
func (p *Pool[T]) Status() Status {
	return StatusOf(p.Get())
}

// Version returns the current data version.
func (p *Pool[T]) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Generation returns the current clear generation.
func (p *Pool[T]) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

// SetMetrics attaches a metrics collector that follows the pool's state.
func (p *Pool[T]) SetMetrics(m *PoolMetrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
	if m != nil {
		m.track(p.key, func() SnapshotState { return p.Get().State })
	}
}

// Load fetches synchronously and stores the result.
// On failure previously cached data stays visible and the error is recorded.
func (p *Pool[T]) Load(ctx context.Context) (T, error) {
	return p.load(ctx, p.SetLoading())
}

func (p *Pool[T]) load(ctx context.Context, gen uint64) (T, error) {
	start := time.Now()
	data, err := p.fetchFn(ctx)
	p.record(start, err)
	if err != nil {
		p.Fail(gen, err)
		var zero T
		return zero, err
	}
	if !p.Commit(gen, func(T, bool) T { return data }) {
		var zero T
		return zero, ErrDiscarded
	}
	return data, nil
}

// Fetch returns a Cmd that fetches fresh data and emits PoolUpdatedMsg.
// The pool enters loading before Fetch returns. Concurrent fetches are
// deduped: returns nil if a fetch is in progress.
func (p *Pool[T]) Fetch(ctx context.Context) tea.Cmd {
	gen, ok := p.startFetch()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		if _, err := p.load(ctx, gen); errors.Is(err, ErrDiscarded) {
			return nil
		}
		return PoolUpdatedMsg{Key: p.key}
	}
}

// startFetch enters loading unless a fetch is already in flight.
func (p *Pool[T]) startFetch() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetching {
		return 0, false
	}
	p.setLoadingLocked()
	return p.generation, true
}

// FetchIfStale returns a Fetch Cmd if data is stale or empty, nil if fresh.
func (p *Pool[T]) FetchIfStale(ctx context.Context) tea.Cmd {
	if p.isFreshOrFetching() {
		return nil
	}
	return p.Fetch(ctx)
}

func (p *Pool[T]) isFreshOrFetching() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fetching {
		return true
	}
	if !p.snapshot.HasData || p.snapshot.State != StateFresh {
		return false
	}
	return p.config.FreshTTL == 0 || time.Since(p.snapshot.FetchedAt) < p.config.FreshTTL
}

// Invalidate marks current data as stale. Next FetchIfStale will re-fetch.
func (p *Pool[T]) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot.HasData && p.snapshot.State == StateFresh {
		p.snapshot.State = StateStale
	}
}

// Set replaces the pool's data and marks it fresh. Only call with data
// from a successful response.
func (p *Pool[T]) Set(data T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(data)
}

func (p *Pool[T]) setLocked(data T) {
	p.snapshot.Data = data
	p.snapshot.State = StateFresh
	p.snapshot.FetchedAt = time.Now()
	p.snapshot.HasData = true
	p.snapshot.Err = nil
	p.snapshot.Success = ""
	p.version++
}

// SetLoading enters the loading state, clearing any error or success
// message, and returns the generation the eventual Commit or Fail must match.
func (p *Pool[T]) SetLoading() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLoadingLocked()
	return p.generation
}

func (p *Pool[T]) setLoadingLocked() {
	p.fetching = true
	p.snapshot.State = StateLoading
	p.snapshot.Err = nil
	p.snapshot.Success = ""
}

// Commit applies fn to the current data and marks the pool fresh.
// It reports false, leaving the pool untouched, if the pool was cleared
// since gen was issued.
func (p *Pool[T]) Commit(gen uint64, fn func(cur T, has bool) T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return false
	}
	p.fetching = false
	p.setLocked(fn(p.snapshot.Data, p.snapshot.HasData))
	return true
}

// Settle returns the pool to idle without changing its data.
func (p *Pool[T]) Settle(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return false
	}
	p.fetching = false
	if p.snapshot.HasData {
		p.snapshot.State = StateFresh
	} else {
		p.snapshot.State = StateEmpty
	}
	return true
}

// Fail records err, keeping any cached data. Reports false if the pool
// was cleared since gen was issued.
func (p *Pool[T]) Fail(gen uint64, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return false
	}
	p.fetching = false
	p.snapshot.State = StateError
	p.snapshot.Err = err
	p.snapshot.Success = ""
	return true
}

// SetSuccess records a transient success message, replacing any error.
func (p *Pool[T]) SetSuccess(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot.State == StateError {
		if p.snapshot.HasData {
			p.snapshot.State = StateFresh
		} else {
			p.snapshot.State = StateEmpty
		}
	}
	p.snapshot.Err = nil
	p.snapshot.Success = msg
}

// Dismiss clears the error or success message.
func (p *Pool[T]) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot.State == StateError {
		if p.snapshot.HasData {
			p.snapshot.State = StateStale
		} else {
			p.snapshot.State = StateEmpty
		}
	}
	p.snapshot.Err = nil
	p.snapshot.Success = ""
}

// Clear resets the pool to its initial empty state. Responses to requests
// started before Clear are discarded.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	m := p.metrics
	p.clearLocked()
	p.mu.Unlock()
	if m != nil {
		m.forget(p.key)
	}
}

func (p *Pool[T]) clearLocked() {
	var zero T
	p.snapshot = Snapshot[T]{Data: zero}
	p.version++
	p.generation++
	p.fetching = false
}

func (p *Pool[T]) record(start time.Time, err error) {
	p.mu.RLock()
	m := p.metrics
	p.mu.RUnlock()
	if m == nil {
		return
	}
	m.Record(p.key, time.Since(start), err)
}

// RecordHit resets the miss counter (new data arrived).
func (p *Pool[T]) RecordHit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missCount = 0
}

// RecordMiss increments the miss counter for adaptive backoff.
func (p *Pool[T]) RecordMiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missCount++
}

// SetFocused marks whether the view consuming this pool has focus.
func (p *Pool[T]) SetFocused(focused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = focused
	if focused {
		p.missCount = 0
	}
}

// PollInterval returns the current recommended polling interval,
// accounting for focus state and miss backoff.
func (p *Pool[T]) PollInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.config.PollBase == 0 {
		return 0
	}
	base := p.config.PollBase
	if !p.focused && p.config.PollBg > 0 {
		base = p.config.PollBg
	}
	interval := base
	for range p.missCount {
		interval *= 2
		if p.config.PollMax > 0 && interval >= p.config.PollMax {
			return p.config.PollMax
		}
	}
	return interval
}
