package data

import (
	"context"

	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// Pools whose contents depend on per-call parameters (a page, a filter)
// are only written through dispatch; their fetch function refuses.
func paramFetch[T any](key string) FetchFunc[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, output.ErrUsage("pool " + key + " is loaded through its action")
	}
}

func newPool[T any](h *Hub, key string, fetch FetchFunc[T]) *Pool[T] {
	p := NewPool(key, PoolConfig{}, fetch)
	p.SetMetrics(h.metrics)
	return p
}

func newCollectionPool[T models.Record](h *Hub, key string, fetch FetchFunc[Collection[T]]) *CollectionPool[T] {
	p := NewCollectionPool(key, PoolConfig{}, fetch)
	p.SetMetrics(h.metrics)
	return p
}

// -- Global realm

// Me returns the authenticated user pool.
func (h *Hub) Me() *Pool[models.User] {
	return RealmPool(h.Global(), "me", func() *Pool[models.User] {
		return newPool(h, "me", func(ctx context.Context) (models.User, error) {
			u, err := h.client.Me(ctx)
			if err != nil {
				return models.User{}, err
			}
			return *u, nil
		})
	})
}

// EmailVerification tracks the verify-email flow.
func (h *Hub) EmailVerification() *Pool[bool] {
	return RealmPool(h.Global(), "email-verification", func() *Pool[bool] {
		return newPool(h, "email-verification", paramFetch[bool]("email-verification"))
	})
}

// Workspaces returns the user's workspace list.
func (h *Hub) Workspaces() *CollectionPool[models.Workspace] {
	return RealmPool(h.Global(), "workspaces", func() *CollectionPool[models.Workspace] {
		return newCollectionPool(h, "workspaces", func(ctx context.Context) (Collection[models.Workspace], error) {
			items, err := h.client.ListWorkspaces(ctx)
			if err != nil {
				return Collection[models.Workspace]{}, err
			}
			return NewCollection(items, nil), nil
		})
	})
}

// Subscription returns the account's subscription pool.
func (h *Hub) Subscription() *Pool[models.Subscription] {
	return RealmPool(h.Global(), "subscription", func() *Pool[models.Subscription] {
		return newPool(h, "subscription", func(ctx context.Context) (models.Subscription, error) {
			s, err := h.client.Subscription(ctx)
			if err != nil {
				return models.Subscription{}, err
			}
			return *s, nil
		})
	})
}

// Order returns the pending payment order pool.
func (h *Hub) Order() *Pool[models.Order] {
	return RealmPool(h.Global(), "order", func() *Pool[models.Order] {
		return newPool(h, "order", paramFetch[models.Order]("order"))
	})
}

// -- Workspace realm

// WorkspaceDetail returns a workspace-scoped pool holding the workspace itself.
func (h *Hub) WorkspaceDetail(workspaceID string) *Pool[models.Workspace] {
	key := "workspace:" + workspaceID
	return RealmPool(h.EnsureWorkspace(workspaceID), key, func() *Pool[models.Workspace] {
		return newPool(h, key, func(ctx context.Context) (models.Workspace, error) {
			w, err := h.client.GetWorkspace(ctx, workspaceID)
			if err != nil {
				return models.Workspace{}, err
			}
			return *w, nil
		})
	})
}

// Members returns a workspace's member list.
func (h *Hub) Members(workspaceID string) *CollectionPool[models.Member] {
	key := "members:" + workspaceID
	return RealmPool(h.EnsureWorkspace(workspaceID), key, func() *CollectionPool[models.Member] {
		return newCollectionPool(h, key, func(ctx context.Context) (Collection[models.Member], error) {
			items, err := h.client.ListMembers(ctx, workspaceID)
			if err != nil {
				return Collection[models.Member]{}, err
			}
			return NewCollection(items, nil), nil
		})
	})
}

// Projects returns the current page of a workspace's projects.
func (h *Hub) Projects(workspaceID string) *CollectionPool[models.Project] {
	key := "projects:" + workspaceID
	return RealmPool(h.EnsureWorkspace(workspaceID), key, func() *CollectionPool[models.Project] {
		return newCollectionPool(h, key, paramFetch[Collection[models.Project]](key))
	})
}

// InviteLink returns a workspace's invite link pool. A nil link means
// none has been generated.
func (h *Hub) InviteLink(workspaceID string) *Pool[*models.InviteLink] {
	key := "invite:" + workspaceID
	return RealmPool(h.EnsureWorkspace(workspaceID), key, func() *Pool[*models.InviteLink] {
		return newPool(h, key, func(ctx context.Context) (*models.InviteLink, error) {
			return h.fetchInviteLink(ctx, workspaceID)
		})
	})
}

// TaskCounts returns per-project task counts for a workspace's project listing.
func (h *Hub) TaskCounts(workspaceID string) *KeyedPool[string, TaskCounts] {
	key := "task-counts:" + workspaceID
	return RealmPool(h.EnsureWorkspace(workspaceID), key, func() *KeyedPool[string, TaskCounts] {
		return NewKeyedPool(func(projectID string) *Pool[TaskCounts] {
			return newPool(h, "task-counts:"+projectID, func(ctx context.Context) (TaskCounts, error) {
				tasks, err := h.client.Board(ctx, projectID)
				if err != nil {
					return nil, err
				}
				return countTasks(tasks), nil
			})
		})
	})
}

// -- Project realm

// ProjectDetail returns a project-scoped pool holding the project itself.
func (h *Hub) ProjectDetail(projectID string) *Pool[models.Project] {
	key := "project:" + projectID
	return RealmPool(h.EnsureProject(projectID), key, func() *Pool[models.Project] {
		return newPool(h, key, func(ctx context.Context) (models.Project, error) {
			p, err := h.client.GetProject(ctx, projectID)
			if err != nil {
				return models.Project{}, err
			}
			return *p, nil
		})
	})
}

// ProjectMembers returns the members with access to a project.
func (h *Hub) ProjectMembers(projectID string) *CollectionPool[models.Member] {
	key := "project-members:" + projectID
	return RealmPool(h.EnsureProject(projectID), key, func() *CollectionPool[models.Member] {
		return newCollectionPool(h, key, func(ctx context.Context) (Collection[models.Member], error) {
			items, err := h.client.ListProjectMembers(ctx, projectID)
			if err != nil {
				return Collection[models.Member]{}, err
			}
			return NewCollection(items, nil), nil
		})
	})
}

// Tasks returns the current page of a project's tasks.
func (h *Hub) Tasks(projectID string) *CollectionPool[models.Task] {
	key := "tasks:" + projectID
	return RealmPool(h.EnsureProject(projectID), key, func() *CollectionPool[models.Task] {
		return newCollectionPool(h, key, paramFetch[Collection[models.Task]](key))
	})
}

// Board returns a project's kanban board with optimistic move support.
func (h *Hub) Board(projectID string) *MutatingPool[board.Board] {
	key := "board:" + projectID
	return RealmPool(h.EnsureProject(projectID), key, func() *MutatingPool[board.Board] {
		p := NewMutatingPool(key, h.boardConfig, func(ctx context.Context) (board.Board, error) {
			tasks, err := h.client.Board(ctx, projectID)
			if err != nil {
				return board.Board{}, err
			}
			return board.FromTasks(tasks), nil
		})
		p.SetMetrics(h.metrics)
		return p
	})
}

// -- Innermost realm (task-scoped)

// TaskDetails returns per-task pools.
func (h *Hub) TaskDetails() *KeyedPool[string, models.Task] {
	return RealmPool(h.inner(), "task", func() *KeyedPool[string, models.Task] {
		return NewKeyedPool(func(id string) *Pool[models.Task] {
			return newPool(h, "task:"+id, func(ctx context.Context) (models.Task, error) {
				t, err := h.client.GetTask(ctx, id)
				if err != nil {
					return models.Task{}, err
				}
				return *t, nil
			})
		})
	})
}

// Comments returns per-task comment pages.
func (h *Hub) Comments() *KeyedPool[string, Collection[models.Comment]] {
	return RealmPool(h.inner(), "comments", func() *KeyedPool[string, Collection[models.Comment]] {
		return NewKeyedPool(func(taskID string) *Pool[Collection[models.Comment]] {
			key := "comments:" + taskID
			return newPool(h, key, paramFetch[Collection[models.Comment]](key))
		})
	})
}

// Activities returns per-entity activity pages keyed by "<scope>:<id>".
func (h *Hub) Activities() *KeyedPool[string, Collection[models.Activity]] {
	return RealmPool(h.inner(), "activities", func() *KeyedPool[string, Collection[models.Activity]] {
		return NewKeyedPool(func(key string) *Pool[Collection[models.Activity]] {
			return newPool(h, "activity:"+key, paramFetch[Collection[models.Activity]]("activity:"+key))
		})
	})
}

// Documentation returns per-entity documentation pools keyed by "<type>:<id>".
func (h *Hub) Documentation() *KeyedPool[string, models.Documentation] {
	return RealmPool(h.inner(), "docs", func() *KeyedPool[string, models.Documentation] {
		return NewKeyedPool(func(key string) *Pool[models.Documentation] {
			return newPool(h, "docs:"+key, paramFetch[models.Documentation]("docs:"+key))
		})
	})
}
