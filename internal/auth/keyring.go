package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

const serviceName = "taskhub"

// ErrNoCredentials means nothing is stored for the origin.
var ErrNoCredentials = errors.New("credentials not found")

// Credentials holds the bearer token and who it belongs to.
type Credentials struct {
	Token   string    `json:"token"`
	UserID  string    `json:"user_id,omitempty"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// backend stores one credentials record per gateway origin.
type backend interface {
	load(origin string) (*Credentials, error)
	save(origin string, creds *Credentials) error
	remove(origin string) error
}

// Store keeps credentials in the system keychain, or in a 0600
// credentials.json when no keychain is reachable.
type Store struct {
	backend backend
}

// NewStore tries the system keyring and falls back to a file in
// fallbackDir. TASKHUB_NO_KEYRING skips the keyring.
func NewStore(fallbackDir string) *Store {
	file := &fileBackend{dir: fallbackDir}
	if os.Getenv("TASKHUB_NO_KEYRING") != "" {
		return &Store{backend: file}
	}

	check := key("keyring-check")
	if err := keyring.Set(serviceName, check, "ok"); err == nil {
		_ = keyring.Delete(serviceName, check)
		return &Store{backend: keychainBackend{}}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n", file.path())
	return &Store{backend: file}
}

// NewFileStore creates a store that never touches the system keyring.
func NewFileStore(dir string) *Store {
	return &Store{backend: &fileBackend{dir: dir}}
}

func key(origin string) string {
	return serviceName + "::" + origin
}

// Load returns the credentials saved for origin. A missing record wraps
// ErrNoCredentials.
func (s *Store) Load(origin string) (*Credentials, error) {
	return s.backend.load(origin)
}

// Save replaces the credentials for origin.
func (s *Store) Save(origin string, creds *Credentials) error {
	return s.backend.save(origin, creds)
}

// Delete removes the credentials for origin. Deleting nothing succeeds.
func (s *Store) Delete(origin string) error {
	return s.backend.remove(origin)
}

// UsingKeyring reports whether credentials live in the system keychain.
func (s *Store) UsingKeyring() bool {
	_, ok := s.backend.(keychainBackend)
	return ok
}

type keychainBackend struct{}

func (keychainBackend) load(origin string) (*Credentials, error) {
	raw, err := keyring.Get(serviceName, key(origin))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w for %s", ErrNoCredentials, origin)
	}
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials for %s: %w", origin, err)
	}
	return &creds, nil
}

func (keychainBackend) save(origin string, creds *Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(origin), string(raw))
}

func (keychainBackend) remove(origin string) error {
	err := keyring.Delete(serviceName, key(origin))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// fileBackend keeps every origin in one JSON object keyed by origin.
// Writes hold a file lock so concurrent logins do not drop each other.
type fileBackend struct {
	dir string
}

func (f *fileBackend) path() string {
	return filepath.Join(f.dir, "credentials.json")
}

func (f *fileBackend) load(origin string) (*Credentials, error) {
	all, err := f.read()
	if err != nil {
		return nil, err
	}
	creds, ok := all[origin]
	if !ok || creds == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoCredentials, origin)
	}
	return creds, nil
}

func (f *fileBackend) save(origin string, creds *Credentials) error {
	return f.update(func(all map[string]*Credentials) bool {
		all[origin] = creds
		return true
	})
}

func (f *fileBackend) remove(origin string) error {
	return f.update(func(all map[string]*Credentials) bool {
		if _, ok := all[origin]; !ok {
			return false
		}
		delete(all, origin)
		return true
	})
}

// update applies fn under the lock and writes the result when fn reports
// a change.
func (f *fileBackend) update(fn func(map[string]*Credentials) bool) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	lock := flock.New(f.path() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credentials: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck // released on close regardless

	all, err := f.read()
	if err != nil {
		return err
	}
	if !fn(all) {
		return nil
	}
	return f.write(all)
}

func (f *fileBackend) read() (map[string]*Credentials, error) {
	all := make(map[string]*Credentials)
	raw, err := os.ReadFile(f.path())
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path(), err)
	}
	if all == nil {
		all = make(map[string]*Credentials)
	}
	return all, nil
}

func (f *fileBackend) write(all map[string]*Credentials) error {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// os.Rename does not replace an existing file on Windows.
	if runtime.GOOS == "windows" {
		_ = os.Remove(f.path())
	}
	return os.Rename(tmp.Name(), f.path())
}
