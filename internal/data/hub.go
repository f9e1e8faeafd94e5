package data

import (
	"context"
	"sync"
	"time"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/observability"
)

// DefaultVerifyEmailTimeout bounds email verification. Past it the flow is
// declared failed even if the request later succeeds.
const DefaultVerifyEmailTimeout = 15 * time.Second

// Hub is the injected state container: typed, realm-scoped pools plus the
// actions that write to them. Views read pools and call actions; nothing
// else writes to the cache.
//
// Realms nest global > workspace > project. Switching workspace tears down
// the workspace realm and, through it, the project realm. Reset tears
// down everything.
type Hub struct {
	mu          sync.RWMutex
	global      *Realm
	workspace   *Realm // nil when no workspace selected
	project     *Realm // nil when not in a project
	workspaceID string
	projectID   string

	client        *api.Client
	hooks         observability.Hooks
	metrics       *PoolMetrics
	verifyTimeout time.Duration
	boardConfig   PoolConfig
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHooks reports every action to h.
func WithHooks(hooks observability.Hooks) HubOption {
	return func(h *Hub) {
		if hooks != nil {
			h.hooks = hooks
		}
	}
}

// WithVerifyEmailTimeout overrides DefaultVerifyEmailTimeout.
func WithVerifyEmailTimeout(d time.Duration) HubOption {
	return func(h *Hub) { h.verifyTimeout = d }
}

// WithBoardConfig sets the board pool's TTL and polling configuration.
func WithBoardConfig(cfg PoolConfig) HubOption {
	return func(h *Hub) { h.boardConfig = cfg }
}

// NewHub creates a Hub with a global realm backed by client.
func NewHub(client *api.Client, opts ...HubOption) *Hub {
	h := &Hub{
		global:        NewRealm("global", context.Background()),
		client:        client,
		hooks:         observability.NopHooks{},
		metrics:       NewPoolMetrics(),
		verifyTimeout: DefaultVerifyEmailTimeout,
		boardConfig: PoolConfig{
			FreshTTL: 30 * time.Second,
			StaleTTL: 5 * time.Minute,
			PollBase: 10 * time.Second,
			PollBg:   30 * time.Second,
			PollMax:  2 * time.Minute,
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Client returns the gateway client.
func (h *Hub) Client() *api.Client { return h.client }

// Metrics returns the pool metrics collector.
func (h *Hub) Metrics() *PoolMetrics { return h.metrics }

// Global returns the process-lifetime realm.
func (h *Hub) Global() *Realm {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.global
}

// Workspace returns the active workspace realm, or nil.
func (h *Hub) Workspace() *Realm {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.workspace
}

// Project returns the active project realm, or nil.
func (h *Hub) Project() *Realm {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.project
}

// WorkspaceID returns the active workspace ID, or "".
func (h *Hub) WorkspaceID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.workspaceID
}

// ProjectID returns the active project ID, or "".
func (h *Hub) ProjectID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.projectID
}

// EnsureWorkspace returns the workspace realm, creating one if needed.
// A different ID tears down the current workspace realm (and its project
// realm) before the new one is created.
func (h *Hub) EnsureWorkspace(workspaceID string) *Realm {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workspace != nil && h.workspaceID == workspaceID {
		return h.workspace
	}
	h.switchWorkspaceLocked(workspaceID)
	return h.workspace
}

// SwitchWorkspace tears down the workspace and project realms and starts
// a fresh workspace realm. Teardown completes before it returns.
func (h *Hub) SwitchWorkspace(workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.switchWorkspaceLocked(workspaceID)
}

func (h *Hub) switchWorkspaceLocked(workspaceID string) {
	if h.workspace != nil {
		h.workspace.Teardown()
	} else if h.project != nil {
		h.project.Teardown()
	}
	h.project = nil
	h.projectID = ""
	h.workspaceID = workspaceID
	h.workspace = h.global.Child("workspace:" + workspaceID)
}

// LeaveWorkspace tears down the workspace realm and its project realm.
func (h *Hub) LeaveWorkspace() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workspace != nil {
		h.workspace.Teardown()
	} else if h.project != nil {
		h.project.Teardown()
	}
	h.workspace = nil
	h.workspaceID = ""
	h.project = nil
	h.projectID = ""
}

// EnsureProject returns the project realm, creating one if needed.
// The realm nests under the active workspace realm when there is one.
func (h *Hub) EnsureProject(projectID string) *Realm {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.project != nil && h.projectID == projectID {
		return h.project
	}
	if h.project != nil {
		h.project.Teardown()
	}
	parent := h.global
	if h.workspace != nil {
		parent = h.workspace
	}
	h.projectID = projectID
	h.project = parent.Child("project:" + projectID)
	return h.project
}

// LeaveProject tears down the project realm.
func (h *Hub) LeaveProject() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.project != nil {
		h.project.Teardown()
		h.project = nil
		h.projectID = ""
	}
}

// Reset clears every cached collection, as on logout or account deletion.
// The Hub stays usable with a fresh global realm.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global.Teardown()
	h.workspace = nil
	h.workspaceID = ""
	h.project = nil
	h.projectID = ""
	h.global = NewRealm("global", context.Background())
}

// Shutdown tears down all realms. Call on program exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global.Teardown()
	h.workspace = nil
	h.project = nil
}

// inner returns the innermost active realm. Task-scoped pools live here.
func (h *Hub) inner() *Realm {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case h.project != nil:
		return h.project
	case h.workspace != nil:
		return h.workspace
	}
	return h.global
}

// bind derives a context from ctx that is also canceled when r is torn down.
func bind(ctx context.Context, r *Realm) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// dispatch runs Dispatch inside realm r and reports it as resource.action.
func dispatch[T, R any](ctx context.Context, h *Hub, r *Realm, p *Pool[T], resource, action string,
	call func(context.Context) (R, error), apply func(T, bool, R) T, opts ...DispatchOption,
) (R, error) {
	ctx, cancel := bind(ctx, r)
	defer cancel()
	op := observability.OperationInfo{
		Resource:   resource,
		Action:     action,
		IsMutation: action != "List" && action != "Get",
		Scope:      r.Name(),
	}
	opts = append(opts, WithOperation(h.hooks, op))
	return Dispatch(ctx, p, call, apply, opts...)
}
