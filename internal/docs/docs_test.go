package docs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

const (
	docA = `{"type":"doc","content":[{"type":"paragraph","text":"draft"}]}`
	docB = `{"type":"doc","content":[{"type":"heading","level":1,"text":"Final"}]}`
)

// fakeRemote is an in-memory gateway tier.
type fakeRemote struct {
	mu       sync.Mutex
	stored   map[string]json.RawMessage
	fetches  int
	fetchErr error
	saveErr  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{stored: map[string]json.RawMessage{}}
}

func (f *fakeRemote) FetchDocumentation(_ context.Context, typ, id string) (models.Documentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return models.Documentation{}, f.fetchErr
	}
	return models.Documentation{EntityType: typ, EntityID: id, Content: f.stored[Key(typ, id)]}, nil
}

func (f *fakeRemote) SaveDocumentation(_ context.Context, typ, id string, content json.RawMessage) (models.Documentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return models.Documentation{}, f.saveErr
	}
	f.stored[Key(typ, id)] = content
	return models.Documentation{EntityType: typ, EntityID: id, Content: content}, nil
}

// -- ShadowStore

func TestShadowStoreSaveLoadDelete(t *testing.T) {
	s := NewShadowStore(t.TempDir())

	got, err := s.Load("task:t1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA), Dirty: true}))
	got, err = s.Load("task:t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, docA, string(got.Content))
	assert.True(t, got.Dirty)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, s.Delete("task:t1"))
	got, err = s.Load("task:t1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, s.Delete("task:t1"), "deleting a missing key is fine")
}

func TestShadowStoreKeepsOtherEntities(t *testing.T) {
	s := NewShadowStore(t.TempDir())
	require.NoError(t, s.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA)}))
	require.NoError(t, s.Save(Shadow{EntityType: "project", EntityID: "p1", Content: json.RawMessage(docB)}))
	require.NoError(t, s.Delete("task:t1"))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "project:p1", list[0].Key())
}

func TestShadowStoreListOrdered(t *testing.T) {
	s := NewShadowStore(t.TempDir())
	for _, id := range []string{"t3", "t1", "t2"} {
		require.NoError(t, s.Save(Shadow{EntityType: "task", EntityID: id, Content: json.RawMessage(docA)}))
	}
	list, err := s.List()
	require.NoError(t, err)
	var keys []string
	for _, sh := range list {
		keys = append(keys, sh.Key())
	}
	assert.Equal(t, []string{"task:t1", "task:t2", "task:t3"}, keys)
}

func TestShadowStoreCorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ShadowFileName), []byte("{nope"), 0o600))
	s := NewShadowStore(dir)

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, s.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA)}))
	list, err = s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestShadowStoreRejectsAnonymousShadow(t *testing.T) {
	assert.Error(t, NewShadowStore(t.TempDir()).Save(Shadow{EntityType: "task"}))
}

func TestShadowStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewShadowStore(dir)
	require.NoError(t, s.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA)}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/c", DefaultDirName), DefaultDir("/c"))
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "taskhub", DefaultDirName), DefaultDir(""))
}

// -- Session

func TestNewSessionValidates(t *testing.T) {
	s := NewShadowStore(t.TempDir())
	_, err := NewSession(newFakeRemote(), s, "board", "x")
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)
	_, err = NewSession(newFakeRemote(), s, models.EntityTask, "")
	assert.Error(t, err)
}

func TestSessionOpenPrefersShadow(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()
	remote.stored["task:t1"] = json.RawMessage(docB)
	require.NoError(t, store.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA), Dirty: true}))

	s, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	assert.Equal(t, SourceShadow, s.Source())
	assert.JSONEq(t, docA, string(s.Content()))
	assert.True(t, s.HasChanges())
	assert.Zero(t, remote.fetches)
}

func TestSessionOpenReadsGatewayOverCleanShadow(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()
	remote.stored["task:t1"] = json.RawMessage(docB)
	require.NoError(t, store.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA)}))

	s, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	assert.Equal(t, SourceGateway, s.Source())
	assert.JSONEq(t, docB, string(s.Content()))
	assert.False(t, s.HasChanges())
	assert.Equal(t, 1, remote.fetches)
}

func TestSessionOpenUsesCleanShadowWhenOffline(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()
	remote.fetchErr = errors.New("offline")
	require.NoError(t, store.Save(Shadow{EntityType: "task", EntityID: "t1", Content: json.RawMessage(docA)}))

	s, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, SourceShadow, s.Source())
	assert.JSONEq(t, docA, string(s.Content()))
	assert.False(t, s.HasChanges())

	other, err := NewSession(remote, store, models.EntityTask, "t2")
	require.NoError(t, err)
	assert.Error(t, other.Open(context.Background()))
}

func TestSessionOpenFallsBackToGateway(t *testing.T) {
	remote := newFakeRemote()
	remote.stored["task:t1"] = json.RawMessage(docB)
	s, err := NewSession(remote, NewShadowStore(t.TempDir()), models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	assert.Equal(t, SourceGateway, s.Source())
	assert.False(t, s.HasChanges())
	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "# Final", doc.Markdown())
}

func TestSessionEditWritesShadowSynchronously(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	s, err := NewSession(newFakeRemote(), store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.EditMarkdown("draft"))
	assert.True(t, s.HasChanges())

	sh, err := store.Load("task:t1")
	require.NoError(t, err)
	require.NotNil(t, sh)
	assert.JSONEq(t, docA, string(sh.Content))
	assert.True(t, sh.Dirty)

	assert.Error(t, s.Edit(json.RawMessage(`{"type":"blob"}`)))
	assert.JSONEq(t, docA, string(s.Content()), "rejected edit leaves content")
}

func TestSessionSaveConverges(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()
	s, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Edit(json.RawMessage(docB)))

	_, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, s.HasChanges())
	assert.JSONEq(t, docB, string(remote.stored["task:t1"]))

	sh, err := store.Load("task:t1")
	require.NoError(t, err)
	require.NotNil(t, sh)
	assert.JSONEq(t, docB, string(sh.Content))
	assert.False(t, sh.Dirty)
}

func TestSessionSaveFailureKeepsChanges(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()
	remote.saveErr = errors.New("offline")
	s, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(json.RawMessage(docA)))

	_, err = s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, s.HasChanges())
	sh, err := store.Load("task:t1")
	require.NoError(t, err)
	assert.True(t, sh.Dirty)
}

func TestSessionSwitchingEntitiesKeepsShadows(t *testing.T) {
	store := NewShadowStore(t.TempDir())
	remote := newFakeRemote()

	a, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, a.Edit(json.RawMessage(docA)))

	b, err := NewSession(remote, store, models.EntityProject, "p1")
	require.NoError(t, err)
	require.NoError(t, b.Open(context.Background()))
	require.NoError(t, b.Edit(json.RawMessage(docB)))
	require.NoError(t, b.Discard())

	again, err := NewSession(remote, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, again.Open(context.Background()))
	assert.Equal(t, SourceShadow, again.Source())
	assert.JSONEq(t, docA, string(again.Content()))
}

// Saved, shadow discarded, reopened: the gateway copy equals what was saved.
func TestSaveThenReloadAgainstGateway(t *testing.T) {
	g := gatewaytest.New(t)
	hub := data.NewHub(g.Client())
	t.Cleanup(hub.Shutdown)
	store := NewShadowStore(t.TempDir())
	ctx := context.Background()

	s, err := NewSession(hub, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))
	assert.Equal(t, SourceGateway, s.Source())
	doc, err := s.Document()
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty(), "no documentation yet")

	require.NoError(t, s.EditMarkdown("# Runbook\n\n- restart the worker"))
	saved, err := s.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Discard())

	hub.Documentation().Clear()
	reopened, err := NewSession(hub, store, models.EntityTask, "t1")
	require.NoError(t, err)
	require.NoError(t, reopened.Open(ctx))
	assert.Equal(t, SourceGateway, reopened.Source())
	assert.JSONEq(t, string(saved.Content), string(reopened.Content()))
	assert.False(t, reopened.HasChanges())
}

// -- Watch

func TestWatchCallsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 10*time.Millisecond, func(md string) error {
			select {
			case got <- md:
			default:
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("v2"), 0o600)
		select {
		case md := <-got:
			return md == "v2"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	boom := errors.New("boom")

	done := make(chan error, 1)
	go func() {
		done <- Watch(context.Background(), path, 10*time.Millisecond, func(string) error { return boom })
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("again"), 0o600)
		select {
		case err := <-done:
			return errors.Is(err, boom)
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
