package data

import (
	"slices"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// Collection is an ordered set of records with unique IDs. Insertion order
// is display order. Pagination is nil for collections the gateway returns
// whole.
type Collection[T models.Record] struct {
	Items      []T
	Pagination *models.Pagination
}

// NewCollection builds a collection from items. A later duplicate ID
// replaces the earlier record in place.
func NewCollection[T models.Record](items []T, pagination *models.Pagination) Collection[T] {
	out := make([]T, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := seen[it.RecordID()]; ok {
			out[i] = it
			continue
		}
		seen[it.RecordID()] = len(out)
		out = append(out, it)
	}
	return Collection[T]{Items: out, Pagination: pagination}
}

// FromPage builds a collection from one server page.
func FromPage[T models.Record](p *models.Page[T]) Collection[T] {
	pag := p.Pagination
	return NewCollection(p.Data, &pag)
}

// Len returns the number of records.
func (c Collection[T]) Len() int { return len(c.Items) }

// IDs returns record IDs in order.
func (c Collection[T]) IDs() []string {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.RecordID()
	}
	return ids
}

// Index returns the position of id, or -1.
func (c Collection[T]) Index(id string) int {
	return slices.IndexFunc(c.Items, func(it T) bool { return it.RecordID() == id })
}

// Find returns the record with the given ID.
func (c Collection[T]) Find(id string) (T, bool) {
	if i := c.Index(id); i >= 0 {
		return c.Items[i], true
	}
	var zero T
	return zero, false
}

// Upsert returns a copy with item replaced in place, or appended if new.
func (c Collection[T]) Upsert(item T) Collection[T] {
	items := slices.Clone(c.Items)
	if i := c.Index(item.RecordID()); i >= 0 {
		items[i] = item
	} else {
		items = append(items, item)
	}
	return Collection[T]{Items: items, Pagination: c.Pagination}
}

// Prepend returns a copy with item first, removing any older copy of it.
func (c Collection[T]) Prepend(item T) Collection[T] {
	items := make([]T, 0, len(c.Items)+1)
	items = append(items, item)
	for _, it := range c.Items {
		if it.RecordID() != item.RecordID() {
			items = append(items, it)
		}
	}
	return Collection[T]{Items: items, Pagination: c.Pagination}
}

// Without returns a copy with id removed.
func (c Collection[T]) Without(id string) Collection[T] {
	items := slices.DeleteFunc(slices.Clone(c.Items), func(it T) bool { return it.RecordID() == id })
	return Collection[T]{Items: items, Pagination: c.Pagination}
}

// CollectionPool is a Pool over a Collection with single-record patching.
type CollectionPool[T models.Record] struct {
	*Pool[Collection[T]]
}

// NewCollectionPool creates a CollectionPool.
func NewCollectionPool[T models.Record](key string, config PoolConfig, fetchFn FetchFunc[Collection[T]]) *CollectionPool[T] {
	return &CollectionPool[T]{Pool: NewPool(key, config, fetchFn)}
}

// Items returns the cached records.
func (cp *CollectionPool[T]) Items() []T {
	return cp.Get().Data.Items
}

// Patch is a reversible single-record update.
type Patch struct {
	revert func() bool
}

// Revert restores the record as it was before the patch. It is a no-op,
// returning false, if the pool was cleared or the record removed since.
func (p *Patch) Revert() bool {
	if p == nil || p.revert == nil {
		return false
	}
	ok := p.revert()
	p.revert = nil
	return ok
}

// Patch applies fn to the record with the given ID in place. It returns
// nil if the record is not cached.
func (cp *CollectionPool[T]) Patch(id string, fn func(T) T) *Patch {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	coll := cp.snapshot.Data
	i := coll.Index(id)
	if !cp.snapshot.HasData || i < 0 {
		return nil
	}
	prior := coll.Items[i]
	items := slices.Clone(coll.Items)
	items[i] = fn(prior)
	cp.snapshot.Data = Collection[T]{Items: items, Pagination: coll.Pagination}
	cp.version++
	gen := cp.generation

	return &Patch{revert: func() bool {
		cp.mu.Lock()
		defer cp.mu.Unlock()
		if cp.generation != gen {
			return false
		}
		cur := cp.snapshot.Data
		j := cur.Index(id)
		if j < 0 {
			return false
		}
		restored := slices.Clone(cur.Items)
		restored[j] = prior
		cp.snapshot.Data = Collection[T]{Items: restored, Pagination: cur.Pagination}
		cp.version++
		return true
	}}
}
