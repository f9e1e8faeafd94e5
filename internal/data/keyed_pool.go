package data

import (
	"maps"
	"slices"
	"sync"
)

// KeyedPool holds one Pool per parent key: comments per task,
// documentation per entity, task counts per project. Pools are created on
// first use and share the factory's config.
type KeyedPool[K comparable, T any] struct {
	mu      sync.Mutex
	pools   map[K]*Pool[T]
	factory func(key K) *Pool[T]
}

// NewKeyedPool creates an empty KeyedPool.
func NewKeyedPool[K comparable, T any](factory func(key K) *Pool[T]) *KeyedPool[K, T] {
	return &KeyedPool[K, T]{pools: make(map[K]*Pool[T]), factory: factory}
}

// Get returns the pool for key, creating it if needed.
func (kp *KeyedPool[K, T]) Get(key K) *Pool[T] {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	p, ok := kp.pools[key]
	if !ok {
		p = kp.factory(key)
		kp.pools[key] = p
	}
	return p
}

// Len returns the number of keys with a pool.
func (kp *KeyedPool[K, T]) Len() int {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return len(kp.pools)
}

// Drop clears and forgets the pools of keys whose parent is gone.
func (kp *KeyedPool[K, T]) Drop(keys ...K) {
	kp.mu.Lock()
	var dropped []*Pool[T]
	for _, k := range keys {
		if p, ok := kp.pools[k]; ok {
			dropped = append(dropped, p)
			delete(kp.pools, k)
		}
	}
	kp.mu.Unlock()
	for _, p := range dropped {
		p.Clear()
	}
}

// Invalidate marks every pool stale.
func (kp *KeyedPool[K, T]) Invalidate() {
	for _, p := range kp.snapshot() {
		p.Invalidate()
	}
}

// Clear clears and forgets every pool.
func (kp *KeyedPool[K, T]) Clear() {
	kp.mu.Lock()
	pools := slices.Collect(maps.Values(kp.pools))
	kp.pools = make(map[K]*Pool[T])
	kp.mu.Unlock()
	for _, p := range pools {
		p.Clear()
	}
}

func (kp *KeyedPool[K, T]) snapshot() []*Pool[T] {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return slices.Collect(maps.Values(kp.pools))
}
