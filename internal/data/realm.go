package data

import (
	"context"
	"fmt"
	"sync"
)

// Realm manages a group of pools with a shared lifecycle.
// Teardown cancels the realm's context, tears down child realms first,
// then clears every owned pool.
//
// The Hub nests three realms:
//   - Global: process lifetime (identity, workspace list, subscription)
//   - Workspace: the active workspace (members, projects, invite link)
//   - Project: the active project (tasks, board, comments, documentation)
type Realm struct {
	mu       sync.RWMutex
	name     string
	ctx      context.Context
	cancel   context.CancelFunc
	pools    map[string]Pooler
	children map[*Realm]struct{}
	parent   *Realm
	dead     bool
}

// NewRealm creates a realm with a cancellable context derived from parent.
func NewRealm(name string, parent context.Context) *Realm { //nolint:revive // context-as-argument: name is the primary differentiator
	ctx, cancel := context.WithCancel(parent)
	return &Realm{
		name:     name,
		ctx:      ctx,
		cancel:   cancel,
		pools:    make(map[string]Pooler),
		children: make(map[*Realm]struct{}),
	}
}

// Name returns the realm's identifier.
func (r *Realm) Name() string { return r.name }

// Context returns the realm's context. Canceled on teardown.
// Pass this to fetch functions so they abort when the realm dies.
func (r *Realm) Context() context.Context { return r.ctx }

// Child creates a realm nested under r. Tearing down r tears down the child.
func (r *Realm) Child(name string) *Realm {
	c := NewRealm(name, r.ctx)
	c.parent = r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		c.cancel()
		c.dead = true
		return c
	}
	r.children[c] = struct{}{}
	return c
}

// Pool returns a registered pool by key, or nil if not found.
func (r *Realm) Pool(key string) Pooler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[key]
}

// Len returns the number of registered pools, excluding children.
func (r *Realm) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Teardown cancels the realm's context, tears down its children and clears
// all pools. It completes before returning. A torn-down realm must not be reused.
func (r *Realm) Teardown() {
	r.cancel()
	r.mu.Lock()
	children := make([]*Realm, 0, len(r.children))
	for c := range r.children {
		children = append(children, c)
	}
	r.children = make(map[*Realm]struct{})
	r.dead = true
	r.mu.Unlock()

	for _, c := range children {
		c.Teardown()
	}

	r.mu.Lock()
	for _, p := range r.pools {
		p.Clear()
	}
	r.pools = make(map[string]Pooler)
	parent := r.parent
	r.mu.Unlock()

	if parent != nil {
		parent.mu.Lock()
		delete(parent.children, r)
		parent.mu.Unlock()
	}
}

// Invalidate marks all pools in this realm and its children as stale.
func (r *Realm) Invalidate() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pools {
		p.Invalidate()
	}
	for c := range r.children {
		c.Invalidate()
	}
}

// RealmPool retrieves or creates a typed pool within a realm.
// The type parameter P must implement Pooler (satisfied by *Pool[T],
// *CollectionPool[T], *MutatingPool[T], and *KeyedPool[K, T]).
//
// Each key maps to exactly one concrete type; callers must be
// consistent. The Hub's typed accessors enforce this.
func RealmPool[P Pooler](r *Realm, key string, create func() P) P {
	r.mu.RLock()
	if p, ok := r.pools[key]; ok {
		r.mu.RUnlock()
		return mustType[P](r.name, key, p)
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[key]; ok {
		return mustType[P](r.name, key, p)
	}
	pool := create()
	r.pools[key] = pool
	return pool
}

func mustType[P Pooler](realm, key string, p Pooler) P {
	typed, ok := p.(P)
	if !ok {
		panic(fmt.Sprintf("realm %q: pool %q has type %T, want %T", realm, key, p, *new(P)))
	}
	return typed
}
