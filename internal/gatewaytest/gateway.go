// Package gatewaytest runs an in-memory TaskHub gateway on httptest for
// tests of the client, the data hub and the commands.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/models"
)

// Seed credentials and IDs.
const (
	Email       = "ada@example.com"
	Password    = "Sup3rsecret"
	VerifyToken = "verify-ok"

	UserID      = "u1"
	OtherUserID = "u2"
	WorkspaceID = "w1"
	ProjectID   = "p1"
)

// Request is one request the gateway received.
type Request struct {
	Method         string
	Path           string // without the /api/v1 prefix
	Query          string
	IdempotencyKey string
	Authorized     bool
}

type failure struct {
	status int
	body   map[string]string
}

type replay struct {
	status int
	body   []byte
}

// Gateway is a stateful stub of the TaskHub HTTP gateway.
type Gateway struct {
	Server *httptest.Server
	Token  string

	mu          sync.Mutex
	user        models.User
	password    string
	users       map[string]models.User
	workspaces  map[string]*models.Workspace
	members     map[string][]models.Member
	projects    map[string]*models.Project
	tasks       map[string]*models.Task
	comments    map[string][]models.Comment
	activities  []models.Activity
	invites     map[string]*models.InviteLink
	docs        map[string]models.Documentation
	sub         models.Subscription
	orders      map[string]models.Order
	deleted     bool
	failures    map[string][]failure
	holds       map[string]chan struct{}
	delays      map[string]time.Duration
	requests    []Request
	idempotency map[string]replay
	seq         int
	clock       time.Time
}

// New starts a seeded gateway and closes it when t ends.
//
// Seed: user u1 (Email/Password) owns workspace w1, which u2 also belongs
// to as a member. Project p1 in w1 holds four tasks: t1 and t2 in TODO,
// t3 in IN_PROGRESS and t4 in DONE. Task t1 has one comment.
func New(t testing.TB) *Gateway {
	t.Helper()
	g := &Gateway{
		Token:       "tok-" + UserID,
		password:    Password,
		users:       map[string]models.User{},
		workspaces:  map[string]*models.Workspace{},
		members:     map[string][]models.Member{},
		projects:    map[string]*models.Project{},
		tasks:       map[string]*models.Task{},
		comments:    map[string][]models.Comment{},
		invites:     map[string]*models.InviteLink{},
		docs:        map[string]models.Documentation{},
		orders:      map[string]models.Order{},
		failures:    map[string][]failure{},
		holds:       map[string]chan struct{}{},
		delays:      map[string]time.Duration{},
		idempotency: map[string]replay{},
		clock:       time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	g.seed()
	g.Server = httptest.NewServer(g.routes())
	t.Cleanup(g.Close)
	return g
}

// Close stops the server and releases any held requests.
func (g *Gateway) Close() {
	g.mu.Lock()
	for k, ch := range g.holds {
		close(ch)
		delete(g.holds, k)
	}
	g.mu.Unlock()
	g.Server.Close()
}

// URL returns the gateway origin, without the API prefix.
func (g *Gateway) URL() string { return g.Server.URL }

// Client returns an API client authenticated as the seed user, with
// retries that do not sleep.
func (g *Gateway) Client(opts ...api.Option) *api.Client {
	opts = append([]api.Option{api.WithRetry(3, 0)}, opts...)
	return api.NewClient(g.URL(), api.StaticToken(g.Token), opts...)
}

func (g *Gateway) seed() {
	g.user = models.User{ID: UserID, Name: "Ada", Email: Email, CreatedAt: g.clock}
	g.users[UserID] = g.user
	g.users[OtherUserID] = models.User{ID: OtherUserID, Name: "Grace", Email: "grace@example.com", CreatedAt: g.clock}

	g.workspaces[WorkspaceID] = &models.Workspace{
		ID: WorkspaceID, Name: "Acme", OwnerID: UserID, AccessLevel: models.AccessOwner, CreatedAt: g.clock,
	}
	g.members[WorkspaceID] = []models.Member{
		{ID: "m1", UserID: UserID, Name: "Ada", Email: Email, AccessLevel: models.AccessOwner, JoinedAt: g.clock},
		{ID: "m2", UserID: OtherUserID, Name: "Grace", Email: "grace@example.com", AccessLevel: models.AccessMember, JoinedAt: g.clock},
	}
	g.projects[ProjectID] = &models.Project{ID: ProjectID, WorkspaceID: WorkspaceID, Name: "Launch", CreatedAt: g.clock, UpdatedAt: g.clock}

	for i, s := range []struct {
		status models.TaskStatus
		pos    int
	}{
		{models.StatusTodo, 0},
		{models.StatusTodo, 1},
		{models.StatusInProgress, 0},
		{models.StatusDone, 0},
	} {
		id := fmt.Sprintf("t%d", i+1)
		g.tasks[id] = &models.Task{
			ID: id, ProjectID: ProjectID, Title: "Task " + id, Status: s.status,
			Priority: models.PriorityMedium, Position: s.pos, CreatedAt: g.clock.Add(time.Duration(i) * time.Minute), UpdatedAt: g.clock,
		}
	}
	g.comments["t1"] = []models.Comment{{ID: "c1", TaskID: "t1", AuthorID: UserID, Author: "Ada", Content: "First!", CreatedAt: g.clock}}
	g.sub = models.Subscription{ID: "s1", Plan: models.PlanFree, Status: "active"}
	g.refreshCountsLocked()
}

// -- Test controls

func routeKey(method, path string) string { return method + " " + path }

// FailNext makes the next request to method+path fail with status and,
// when non-empty, the given reason code. Calls queue in order.
func (g *Gateway) FailNext(method, path string, status int, reason string) {
	body := map[string]string{"message": http.StatusText(status)}
	if reason != "" {
		body["reason"] = reason
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	k := routeKey(method, path)
	g.failures[k] = append(g.failures[k], failure{status: status, body: body})
}

// FailNextWith is FailNext with an explicit message.
func (g *Gateway) FailNextWith(method, path string, status int, message, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := routeKey(method, path)
	g.failures[k] = append(g.failures[k], failure{status: status, body: map[string]string{"message": message, "reason": reason}})
}

// Hold blocks requests to method+path until the returned release func is
// called. Held requests are processed after release, in arrival order.
func (g *Gateway) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.holds[routeKey(method, path)] = ch
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			if g.holds[routeKey(method, path)] == ch {
				delete(g.holds, routeKey(method, path))
				close(ch)
			}
			g.mu.Unlock()
		})
	}
}

// Delay makes requests to method+path wait d before being processed.
func (g *Gateway) Delay(method, path string, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delays[routeKey(method, path)] = d
}

// Requests returns every request received so far.
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// Count returns how many requests hit method+path.
func (g *Gateway) Count(method, path string) int {
	n := 0
	for _, r := range g.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// AddProjects creates n extra projects named "Project NN" in workspace ws.
func (g *Gateway) AddProjects(ws string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("px%02d", i)
		g.projects[id] = &models.Project{
			ID: id, WorkspaceID: ws, Name: fmt.Sprintf("Project %02d", i),
			CreatedAt: g.clock.Add(time.Duration(i) * time.Hour), UpdatedAt: g.clock,
		}
	}
}

// AddComments appends n comments by the seed user to a task.
func (g *Gateway) AddComments(taskID string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 1; i <= n; i++ {
		g.comments[taskID] = append(g.comments[taskID], models.Comment{
			ID: g.nextIDLocked("c"), TaskID: taskID, AuthorID: g.user.ID, Author: g.user.Name,
			Content: fmt.Sprintf("Comment %02d", i), CreatedAt: g.nowLocked(),
		})
	}
}

// AddMember adds userID to workspace ws with level.
func (g *Gateway) AddMember(ws, userID string, level models.AccessLevel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u := g.users[userID]
	g.members[ws] = append(g.members[ws], models.Member{
		ID: "m-" + userID, UserID: userID, Name: u.Name, Email: u.Email, AccessLevel: level, JoinedAt: g.clock,
	})
	g.refreshCountsLocked()
}

// Task returns a copy of a stored task.
func (g *Gateway) Task(id string) (models.Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// Workspace returns a copy of a stored workspace.
func (g *Gateway) Workspace(id string) (models.Workspace, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.workspaces[id]
	if !ok {
		return models.Workspace{}, false
	}
	return *w, true
}

// InviteToken returns the current invite token for ws, or "".
func (g *Gateway) InviteToken(ws string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l := g.invites[ws]; l != nil {
		return l.Token
	}
	return ""
}

// AccountDeleted reports whether DELETE /users/me succeeded.
func (g *Gateway) AccountDeleted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleted
}

// -- Middleware

func (g *Gateway) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, api.APIPrefix)
		k := routeKey(r.Method, path)

		g.mu.Lock()
		g.requests = append(g.requests, Request{
			Method:         r.Method,
			Path:           path,
			Query:          r.URL.RawQuery,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Authorized:     r.Header.Get("Authorization") == "Bearer "+g.Token,
		})
		hold := g.holds[k]
		delay := g.delays[k]
		var f *failure
		if q := g.failures[k]; len(q) > 0 {
			f = &q[0]
			g.failures[k] = q[1:]
		}
		g.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if f != nil {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		ok := !g.deleted && r.Header.Get("Authorization") == "Bearer "+g.Token
		g.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// idempotent replays the stored response for a repeated Idempotency-Key.
func (g *Gateway) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		g.mu.Lock()
		prev, seen := g.idempotency[key]
		g.mu.Unlock()
		if seen {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(prev.status)
			_, _ = w.Write(prev.body)
			return
		}
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < 300 {
			g.mu.Lock()
			g.idempotency[key] = replay{status: rec.status, body: rec.body}
			g.mu.Unlock()
		}
	})
}

type recorder struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}

// -- Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, reason string) {
	body := map[string]string{"message": message}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return false
	}
	return true
}

func (g *Gateway) nextIDLocked(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *Gateway) nowLocked() time.Time {
	g.clock = g.clock.Add(time.Second)
	return g.clock
}

func (g *Gateway) logLocked(action, entityType, entityID, summary string) {
	g.activities = append(g.activities, models.Activity{
		ID:         g.nextIDLocked("a"),
		Action:     action,
		ActorID:    g.user.ID,
		Actor:      g.user.Name,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		CreatedAt:  g.nowLocked(),
	})
}

func (g *Gateway) refreshCountsLocked() {
	for id, w := range g.workspaces {
		w.MembersCount = len(g.members[id])
	}
	for _, p := range g.projects {
		p.TasksCount = 0
	}
	for _, t := range g.tasks {
		if p := g.projects[t.ProjectID]; p != nil {
			p.TasksCount++
		}
	}
}

func (g *Gateway) isMemberLocked(ws, userID string) bool {
	for _, m := range g.members[ws] {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// paginate slices items by the page and limit query parameters.
func paginate[T any](r *http.Request, items []T) models.Page[T] {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	p := models.NewPagination(page, limit, len(items))
	start := min((p.Page-1)*p.Limit, len(items))
	end := min(start+p.Limit, len(items))
	data := append([]T{}, items[start:end]...)
	return models.Page[T]{Data: data, Pagination: p}
}

func atoiDefault(s string, def int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 1 {
		return def
	}
	return n
}

func sortBy[T any](items []T, r *http.Request, keys map[string]func(a, b T) bool) {
	by := r.URL.Query().Get("sortBy")
	less, ok := keys[by]
	if !ok {
		return
	}
	desc := r.URL.Query().Get("sortOrder") == "desc"
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(g.record)

	r.Route(api.APIPrefix, func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			r.Use(g.idempotent)
			r.Post("/auth/login", g.login)
			r.Get("/users/verify-email", g.verifyEmail)
		})

		r.Group(func(r chi.Router) {
			r.Use(g.authenticate)
			r.Use(g.idempotent)

			r.Get("/users/me", g.me)
			r.Delete("/users/me", g.deleteAccount)
			r.Put("/users/me/password", g.changePassword)

			r.Get("/workspaces", g.listWorkspaces)
			r.Post("/workspaces", g.createWorkspace)
			r.Post("/workspaces/join", g.joinWorkspace)
			r.Get("/workspaces/{id}", g.getWorkspace)
			r.Put("/workspaces/{id}", g.updateWorkspace)
			r.Delete("/workspaces/{id}", g.deleteWorkspace)
			r.Get("/workspaces/{id}/members", g.listMembers)
			r.Put("/workspaces/{id}/members/{userID}", g.updateMember)
			r.Delete("/workspaces/{id}/members/{userID}", g.removeMember)
			r.Get("/workspaces/{id}/invite-link", g.getInvite)
			r.Post("/workspaces/{id}/invite-link", g.generateInvite)
			r.Post("/workspaces/{id}/invite-link/reset", g.resetInvite)
			r.Get("/workspaces/{id}/projects", g.listProjects)
			r.Post("/workspaces/{id}/projects", g.createProject)
			r.Get("/workspaces/{id}/activities", g.listActivities("workspace"))

			r.Get("/projects/{id}", g.getProject)
			r.Put("/projects/{id}", g.updateProject)
			r.Delete("/projects/{id}", g.deleteProject)
			r.Get("/projects/{id}/members", g.listProjectMembers)
			r.Get("/projects/{id}/tasks", g.listTasks)
			r.Post("/projects/{id}/tasks", g.createTask)
			r.Get("/projects/{id}/board", g.board)
			r.Get("/projects/{id}/activities", g.listActivities("project"))
			r.Get("/projects/{id}/documentation", g.getDocs(models.EntityProject))
			r.Put("/projects/{id}/documentation", g.saveDocs(models.EntityProject))

			r.Get("/tasks/{id}", g.getTask)
			r.Put("/tasks/{id}", g.updateTask)
			r.Delete("/tasks/{id}", g.deleteTask)
			r.Patch("/tasks/{id}/move", g.moveTask)
			r.Get("/tasks/{id}/comments", g.listComments)
			r.Post("/tasks/{id}/comments", g.addComment)
			r.Get("/tasks/{id}/activities", g.listActivities("task"))
			r.Get("/tasks/{id}/documentation", g.getDocs(models.EntityTask))
			r.Put("/tasks/{id}/documentation", g.saveDocs(models.EntityTask))
			r.Delete("/comments/{id}", g.deleteComment)

			r.Get("/subscriptions/me", g.subscription)
			r.Post("/payments/orders", g.createOrder)
			r.Post("/payments/verify", g.verifyPayment)
		})
	})
	return r
}
