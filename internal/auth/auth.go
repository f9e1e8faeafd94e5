// Package auth manages the TaskHub bearer token.
package auth

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// TokenEnv overrides stored credentials when set.
const TokenEnv = "TASKHUB_TOKEN"

// Manager resolves and persists credentials for the configured gateway.
type Manager struct {
	cfg   *config.Config
	store *Store

	mu sync.Mutex
}

// NewManager creates a new auth manager backed by the default store.
func NewManager(cfg *config.Config) *Manager {
	return NewManagerWithStore(cfg, NewStore(config.GlobalConfigDir()))
}

// NewManagerWithStore creates a manager with an explicit store.
func NewManagerWithStore(cfg *config.Config, store *Store) *Manager {
	return &Manager{cfg: cfg, store: store}
}

func (m *Manager) origin() string {
	return config.NormalizeBaseURL(m.cfg.BaseURL)
}

// AccessToken returns the bearer token for the current gateway.
// TASKHUB_TOKEN takes precedence over stored credentials.
func (m *Manager) AccessToken(_ context.Context) (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(m.origin())
	if err != nil || creds.Token == "" {
		return "", output.ErrAuth("Not authenticated")
	}
	return creds.Token, nil
}

// IsAuthenticated reports whether a token is available.
func (m *Manager) IsAuthenticated() bool {
	if os.Getenv(TokenEnv) != "" {
		return true
	}
	creds, err := m.store.Load(m.origin())
	if err != nil {
		return false
	}
	return creds.Token != ""
}

// Login stores token for the current gateway.
func (m *Manager) Login(token, userID, email string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return output.ErrValidation("token", "must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Save(m.origin(), &Credentials{
		Token:   token,
		UserID:  userID,
		Email:   email,
		SavedAt: time.Now().UTC(),
	})
}

// Logout removes stored credentials.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(m.origin())
}

// Credentials returns the stored credentials, or nil if none.
func (m *Manager) Credentials() *Credentials {
	creds, err := m.store.Load(m.origin())
	if err != nil {
		return nil
	}
	return creds
}

// SetUser records who the stored token belongs to.
func (m *Manager) SetUser(userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(m.origin())
	if err != nil {
		return err
	}
	creds.UserID = userID
	creds.Email = email
	return m.store.Save(m.origin(), creds)
}

// Store returns the credential store.
func (m *Manager) Store() *Store {
	return m.store
}
