// Package resilience keeps gateway health state on disk so that concurrent
// and consecutive taskhub invocations stop hammering a failing gateway.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the state file name inside the store directory.
	StateFileName = "state.json"

	// DefaultDirName is the subdirectory within the cache dir.
	DefaultDirName = "gateway"
)

// LockTimeout bounds the wait for the state lock. Past it, operations run
// unlocked rather than hang the CLI.
const LockTimeout = 100 * time.Millisecond

// Store reads and writes State under an exclusive file lock.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the store directory under cacheDir, or under the
// user cache directory when cacheDir is empty.
func DefaultDir(cacheDir string) string {
	if cacheDir != "" {
		return filepath.Join(cacheDir, DefaultDirName)
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "taskhub", DefaultDirName)
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "taskhub", DefaultDirName)
	}
	return filepath.Join(os.TempDir(), "taskhub", DefaultDirName)
}

// Path returns the state file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// acquireLock returns nil without error when the lock is busy past
// LockTimeout.
func (s *Store) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return fl, nil
}

func release(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

// Load reads the state. A missing or corrupt file yields a fresh state.
func (s *Store) Load() (*State, error) {
	fl, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release(fl)
	return s.loadUnlocked()
}

func (s *Store) loadUnlocked() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return NewState(), nil
	}
	return &state, nil
}

func (s *Store) saveUnlocked(state *State) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	state.Version = StateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp name so unlocked writers never share a file.
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Update runs fn on the current state and saves the result, holding the
// lock across the whole read-modify-write.
func (s *Store) Update(fn func(*State) error) error {
	fl, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release(fl)

	state, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.saveUnlocked(state)
}

// Clear removes the state file.
func (s *Store) Clear() error {
	fl, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release(fl)

	err = os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
