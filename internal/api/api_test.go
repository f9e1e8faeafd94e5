package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticToken("tok"), WithRetry(3, 0))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientSendsBearerAndPrefix(t *testing.T) {
	var gotAuth, gotPath, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		writeJSON(w, 200, models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/v1/users/me", gotPath)
	assert.Contains(t, gotUA, "taskhub-cli/")
}

func TestClientMissingTokenIsAuthError(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	c := NewClient(srv.URL, StaticToken(""))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, output.CodeAuth, output.AsError(err).Code)
	assert.False(t, called)
}

func TestPublicRequestWithoutToken(t *testing.T) {
	var gotAuth, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotToken = r.URL.Query().Get("token")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, StaticToken(""))

	require.NoError(t, c.VerifyEmail(context.Background(), "abc"))
	assert.Empty(t, gotAuth)
	assert.Equal(t, "abc", gotToken)
}

func TestRetryReusesIdempotencyKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, 201, models.Workspace{ID: "w1", Name: "Acme", OwnerID: "u1"})
	})

	ws, err := c.CreateWorkspace(context.Background(), WorkspaceInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "w1", ws.ID)
	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])
}

func TestSeparateCallsGetDistinctKeys(t *testing.T) {
	var keys []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteTask(context.Background(), "t1"))
	require.NoError(t, c.DeleteTask(context.Background(), "t1"))
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestGetHasNoIdempotencyKey(t *testing.T) {
	var key string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		writeJSON(w, 200, []models.Workspace{})
	})
	_, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestNonRetryableErrorNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, 409, map[string]string{
			"message": "Workspace still has members",
			"reason":  models.ReasonWorkspaceHasMembers,
		})
	})

	err := c.DeleteWorkspace(context.Background(), "w1", false)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	e := output.AsError(err)
	assert.Equal(t, "Workspace still has members", e.Message)
	assert.Equal(t, models.ReasonWorkspaceHasMembers, e.Reason)
	assert.Equal(t, 409, e.HTTPStatus)
}

func TestErrorAliasField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]string{"error": "Name is required"})
	})
	_, err := c.CreateProject(context.Background(), "w1", ProjectInput{})
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, "Name is required", e.Message)
	assert.Equal(t, output.CodeValidation, e.Code)
}

func TestNonJSONErrorBodyIsGeneric(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	_, err := c.GetTask(context.Background(), "t1")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.GenericMessage, e.Message)
	assert.Empty(t, e.Reason)
}

func TestForceDeleteQuery(t *testing.T) {
	var force string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		force = r.URL.Query().Get("force")
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteWorkspace(context.Background(), "w1", true))
	assert.Equal(t, "true", force)
}

func TestDeleteAccountBody(t *testing.T) {
	var body DeleteAccountRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteAccount(context.Background(), DeleteAccountRequest{Confirmation: "DELETE", ForceDelete: true}))
	assert.Equal(t, "DELETE", body.Confirmation)
	assert.True(t, body.ForceDelete)
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := c.GetProject(context.Background(), "p1")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.MalformedMessage, e.Message)
	assert.NotNil(t, e.Cause)
}

func TestInvalidDTOIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"id": "t1", "projectId": "p1", "title": "x", "status": "BLOCKED", "priority": "LOW"})
	})
	_, err := c.GetTask(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, output.MalformedMessage, output.AsError(err).Message)
}

func TestPaginatedListSendsQueryAndValidatesCursor(t *testing.T) {
	var got url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSON(w, 200, models.Page[models.Comment]{
			Data:       []models.Comment{{ID: "c3", TaskID: "t1", AuthorID: "u1", Content: "hi"}},
			Pagination: models.NewPagination(2, 2, 3),
		})
	})

	page, err := c.ListComments(context.Background(), "t1", url.Values{"page": {"2"}, "limit": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, 2, page.Pagination.Page)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
	require.Len(t, page.Data, 1)
}

func TestInconsistentCursorIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"data":       []any{},
			"pagination": map[string]any{"page": 1, "limit": 10, "total": 30, "totalPages": 3, "hasNext": false, "hasPrev": false},
		})
	})
	_, err := c.ListProjects(context.Background(), "w1", nil)
	require.Error(t, err)
	assert.Equal(t, output.MalformedMessage, output.AsError(err).Message)
}

func TestMoveTaskBody(t *testing.T) {
	var in MoveInput
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/tasks/t1/move", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, 200, models.Task{ID: "t1", ProjectID: "p1", Title: "x", Status: in.Status, Priority: models.PriorityLow, Position: in.Position})
	})
	task, err := c.MoveTask(context.Background(), "t1", MoveInput{Status: models.StatusInProgress, Position: 2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, 2, task.Position)
}

func TestRateLimitRetryAfterHint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeRateLimit, e.Code)
	assert.Contains(t, e.Hint, "7 seconds")
}

func TestRateLimitIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gate := &recordingGate{}
	c := NewClient(srv.URL, StaticToken("tok"), WithRetry(3, 0), WithGate(gate))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, gate.outcome, 1)
	e := output.AsError(gate.outcome[0])
	assert.Equal(t, output.CodeRateLimit, e.Code)
	assert.Equal(t, 30, e.RetryAfter)
}

func TestContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, StaticToken("tok"), WithRetry(5, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.ListWorkspaces(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 0, parseRetryAfter(""))
	assert.Equal(t, 12, parseRetryAfter("12"))
	assert.Equal(t, 0, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

type recordingGate struct {
	reject  error
	outcome []error
}

func (g *recordingGate) Admit() error     { return g.reject }
func (g *recordingGate) Record(err error) { g.outcome = append(g.outcome, err) }

func TestGateSeesOneOutcomePerCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, 200, models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	}))
	defer srv.Close()

	gate := &recordingGate{}
	c := NewClient(srv.URL, StaticToken("tok"), WithRetry(3, 0), WithGate(gate))

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []error{nil}, gate.outcome)
}

func TestGateRejectionSkipsTheNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	gate := &recordingGate{reject: output.ErrRateLimit(9)}
	c := NewClient(srv.URL, StaticToken("tok"), WithGate(gate))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, output.CodeRateLimit, output.AsError(err).Code)
	assert.False(t, called)
	assert.Empty(t, gate.outcome)
}
