// Package recents remembers the workspaces and projects a user picked most
// recently so pickers can offer them first.
package recents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Kinds of remembered entities.
const (
	KindWorkspace = "workspace"
	KindProject   = "project"
)

// MaxItems is how many entries are kept per kind.
const MaxItems = 10

// Item is one remembered entity.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Detail      string    `json:"detail,omitempty"`
	Kind        string    `json:"kind"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	UsedAt      time.Time `json:"used_at"`
}

// Store persists recents to <dir>/recents.json. Writes take a file lock
// and merge with what other processes saved in the meantime.
type Store struct {
	mu        sync.RWMutex
	items     map[string][]Item
	path      string
	lock      *flock.Flock
	lastError error
}

// NewStore opens the store in dir.
func NewStore(dir string) *Store {
	path := filepath.Join(dir, "recents.json")
	s := &Store{
		items: make(map[string][]Item),
		path:  path,
		lock:  flock.New(path + ".lock"),
	}
	s.items = s.read()
	return s
}

// Add records item as the most recent of its kind.
func (s *Store) Add(item Item) {
	item.UsedAt = time.Now()
	s.update(func(items map[string][]Item) {
		list := slices.DeleteFunc(items[item.Kind], func(i Item) bool { return i.ID == item.ID })
		list = append([]Item{item}, list...)
		if len(list) > MaxItems {
			list = list[:MaxItems]
		}
		items[item.Kind] = list
	})
}

// Forget drops one entry, e.g. after the entity was deleted.
func (s *Store) Forget(kind, id string) {
	s.update(func(items map[string][]Item) {
		items[kind] = slices.DeleteFunc(items[kind], func(i Item) bool { return i.ID == id })
	})
}

// Get returns a copy of the entries of kind, newest first. A non-empty
// workspaceID keeps only entries from that workspace.
func (s *Store) Get(kind, workspaceID string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Item
	for _, item := range s.items[kind] {
		if workspaceID != "" && item.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ClearAll forgets everything. Called on logout.
func (s *Store) ClearAll() {
	s.update(func(items map[string][]Item) {
		clear(items)
	})
}

// LastError reports the last persistence failure. Recents are best effort
// so failures never reach callers otherwise.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) update(fn func(map[string][]Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		s.lastError = err
		fn(s.items)
		return
	}
	if err := s.lock.Lock(); err != nil {
		s.lastError = err
		fn(s.items)
		return
	}
	defer s.lock.Unlock() //nolint:errcheck // released on close regardless

	s.items = s.read()
	fn(s.items)
	s.lastError = s.write(s.items)
}

func (s *Store) read() map[string][]Item {
	items := make(map[string][]Item)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return items
	}
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return make(map[string][]Item)
	}
	return items
}

func (s *Store) write(items map[string][]Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
