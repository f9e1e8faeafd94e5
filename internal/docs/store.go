// Package docs keeps the local shadow of documentation being edited and
// reconciles it with the gateway copy. The shadow wins until it is saved.
package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

const (
	// ShadowFileName is the file holding every shadow.
	ShadowFileName = "shadows.json"

	// DefaultDirName is the subdirectory within the cache dir.
	DefaultDirName = "docs"

	// LockTimeout is the maximum time to wait for the file lock. Past it
	// the operation proceeds unlocked rather than hanging the CLI.
	LockTimeout = 100 * time.Millisecond
)

// Shadow is the local copy of one entity's documentation.
type Shadow struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Content    json.RawMessage `json:"content"`
	Dirty      bool            `json:"dirty"` // edited since the last successful save
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Key returns the shadow's store key.
func (s Shadow) Key() string { return Key(s.EntityType, s.EntityID) }

// Key builds the store key for an entity.
func Key(entityType, entityID string) string { return entityType + ":" + entityID }

type shadowFile struct {
	Shadows map[string]Shadow `json:"shadows"`
}

// ShadowStore persists shadows in one JSON file guarded by a file lock,
// written atomically through a temp file and rename.
type ShadowStore struct {
	dir string
}

// NewShadowStore creates a store rooted at dir. An empty dir uses the
// default cache location.
func NewShadowStore(dir string) *ShadowStore {
	if dir == "" {
		dir = DefaultDir("")
	}
	return &ShadowStore{dir: dir}
}

// DefaultDir returns the shadow directory under cacheDir, or under the
// platform cache directory when cacheDir is empty.
func DefaultDir(cacheDir string) string {
	if cacheDir != "" {
		return filepath.Join(cacheDir, DefaultDirName)
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskhub", DefaultDirName)
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "taskhub", DefaultDirName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".cache", "taskhub", DefaultDirName)
	}
	return filepath.Join(os.TempDir(), "taskhub", DefaultDirName)
}

// Dir returns the store directory.
func (s *ShadowStore) Dir() string { return s.dir }

// Path returns the shadow file path.
func (s *ShadowStore) Path() string { return filepath.Join(s.dir, ShadowFileName) }

func (s *ShadowStore) lockPath() string { return filepath.Join(s.dir, ".lock") }

// lock takes the directory lock. A nil unlock func with a nil error means
// the lock timed out and the caller proceeds unlocked.
func (s *ShadowStore) lock() (unlock func(), err error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, err
	}
	fl := flock.New(s.lockPath())

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return func() {}, nil
		}
		return nil, err
	}
	if !locked {
		return func() {}, nil
	}
	return func() { _ = fl.Unlock() }, nil
}

// Load returns the shadow stored under key, or nil.
func (s *ShadowStore) Load(key string) (*Shadow, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	sh, ok := f.Shadows[key]
	if !ok {
		return nil, nil
	}
	return &sh, nil
}

// Save stores sh under its key, leaving every other shadow untouched.
func (s *ShadowStore) Save(sh Shadow) error {
	if sh.EntityType == "" || sh.EntityID == "" {
		return fmt.Errorf("shadow needs an entity type and ID")
	}
	return s.update(func(f *shadowFile) {
		if sh.UpdatedAt.IsZero() {
			sh.UpdatedAt = time.Now().UTC()
		}
		f.Shadows[sh.Key()] = sh
	})
}

// Delete removes the shadow stored under key. Deleting a missing key is
// not an error.
func (s *ShadowStore) Delete(key string) error {
	return s.update(func(f *shadowFile) { delete(f.Shadows, key) })
}

// List returns every shadow ordered by key.
func (s *ShadowStore) List() ([]Shadow, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]Shadow, 0, len(f.Shadows))
	for _, sh := range f.Shadows {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *ShadowStore) update(fn func(*shadowFile)) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	fn(f)
	return s.write(f)
}

// read loads the shadow file without locking. A corrupt file reads as
// empty.
func (s *ShadowStore) read() (*shadowFile, error) {
	f := &shadowFile{Shadows: map[string]Shadow{}}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, f); err != nil || f.Shadows == nil {
		return &shadowFile{Shadows: map[string]Shadow{}}, nil
	}
	return f, nil
}

func (s *ShadowStore) write(f *shadowFile) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	// os.Rename does not replace an existing file on Windows.
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
