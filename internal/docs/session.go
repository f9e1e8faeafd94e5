package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/richtext"
)

// Remote is the gateway tier. *data.Hub implements it.
type Remote interface {
	FetchDocumentation(ctx context.Context, entityType, entityID string) (models.Documentation, error)
	SaveDocumentation(ctx context.Context, entityType, entityID string, content json.RawMessage) (models.Documentation, error)
}

// Source names the tier a session's content was read from.
type Source string

const (
	SourceNone    Source = ""
	SourceShadow  Source = "shadow"
	SourceGateway Source = "gateway"
)

// Session edits one entity's documentation across both tiers.
type Session struct {
	remote     Remote
	store      *ShadowStore
	entityType string
	entityID   string

	mu         sync.Mutex
	content    json.RawMessage
	source     Source
	hasChanges bool
}

// NewSession returns a session for entityType/entityID. Call Open before
// reading content.
func NewSession(remote Remote, store *ShadowStore, entityType, entityID string) (*Session, error) {
	if _, err := models.DocumentationPath(entityType, entityID); err != nil {
		return nil, output.ErrValidation("type", "must be task or project")
	}
	if entityID == "" {
		return nil, output.ErrValidation("id", "must not be empty")
	}
	return &Session{remote: remote, store: store, entityType: entityType, entityID: entityID}, nil
}

// Key returns the session's shadow key.
func (s *Session) Key() string { return Key(s.entityType, s.entityID) }

// Open hydrates the session. A dirty shadow wins. Otherwise the gateway
// copy is read, and a clean shadow is only used when the gateway cannot
// be reached.
func (s *Session) Open(ctx context.Context) error {
	sh, err := s.store.Load(s.Key())
	if err != nil {
		return err
	}
	if sh != nil && sh.Dirty {
		s.set(sh.Content, SourceShadow, true)
		return nil
	}

	d, err := s.remote.FetchDocumentation(ctx, s.entityType, s.entityID)
	if err != nil {
		if sh != nil {
			s.set(sh.Content, SourceShadow, false)
			return nil
		}
		return err
	}
	s.set(d.Content, SourceGateway, false)
	return nil
}

func (s *Session) set(content json.RawMessage, source Source, changed bool) {
	s.mu.Lock()
	s.content, s.source, s.hasChanges = content, source, changed
	s.mu.Unlock()
}

// Content returns the current editor state.
func (s *Session) Content() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Document parses the current editor state.
func (s *Session) Document() (richtext.Document, error) {
	return richtext.Parse(s.Content())
}

// Source reports where the content was read from.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// HasChanges reports whether the shadow holds edits not yet saved.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasChanges
}

// Edit replaces the editor state. The shadow is written before Edit
// returns.
func (s *Session) Edit(content json.RawMessage) error {
	if _, err := richtext.Parse(content); err != nil {
		return output.ErrValidation("content", err.Error())
	}
	content = bytes.Clone(content)

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Save(Shadow{
		EntityType: s.entityType,
		EntityID:   s.entityID,
		Content:    content,
		Dirty:      true,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	s.content, s.source, s.hasChanges = content, SourceShadow, true
	return nil
}

// EditMarkdown replaces the editor state with parsed Markdown.
func (s *Session) EditMarkdown(md string) error {
	return s.Edit(richtext.FromMarkdown(md).JSON())
}

// Save sends the full content to the gateway. On success the shadow is
// rewritten with the saved content and HasChanges becomes false.
func (s *Session) Save(ctx context.Context) (models.Documentation, error) {
	content := s.Content()
	if content == nil {
		content = richtext.Empty().JSON()
	}
	d, err := s.remote.SaveDocumentation(ctx, s.entityType, s.entityID, content)
	if err != nil {
		return d, err
	}
	if len(d.Content) == 0 {
		d.Content = content
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.store.Save(Shadow{
		EntityType: s.entityType,
		EntityID:   s.entityID,
		Content:    d.Content,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return d, err
	}
	s.content, s.hasChanges = d.Content, false
	return d, nil
}

// Discard drops the shadow. The session must be reopened to read the
// gateway copy.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(s.Key()); err != nil {
		return err
	}
	s.content, s.source, s.hasChanges = nil, SourceNone, false
	return nil
}
