package data

import (
	"context"
	"errors"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// LoadWorkspaces fetches every workspace the user belongs to. An empty
// result means the user must create or join one first.
func (h *Hub) LoadWorkspaces(ctx context.Context) (Collection[models.Workspace], error) {
	return dispatch(ctx, h, h.Global(), h.Workspaces().Pool, "Workspaces", "List",
		func(ctx context.Context) (Collection[models.Workspace], error) {
			items, err := h.client.ListWorkspaces(ctx)
			if err != nil {
				return Collection[models.Workspace]{}, err
			}
			return NewCollection(items, nil), nil
		}, Replace[Collection[models.Workspace]])
}

// LoadWorkspace fetches one workspace into the workspace realm.
func (h *Hub) LoadWorkspace(ctx context.Context, id string) (models.Workspace, error) {
	return dispatch(ctx, h, h.EnsureWorkspace(id), h.WorkspaceDetail(id), "Workspaces", "Get",
		func(ctx context.Context) (models.Workspace, error) {
			w, err := h.client.GetWorkspace(ctx, id)
			if err != nil {
				return models.Workspace{}, err
			}
			return *w, nil
		}, Replace[models.Workspace])
}

// CreateWorkspace validates and creates a workspace, adding it to the list.
func (h *Hub) CreateWorkspace(ctx context.Context, in api.WorkspaceInput) (*models.Workspace, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := models.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	return dispatch(ctx, h, h.Global(), h.Workspaces().Pool, "Workspaces", "Create",
		func(ctx context.Context) (*models.Workspace, error) { return h.client.CreateWorkspace(ctx, in) },
		ifCached(h.Workspaces().Pool, upsertInto[models.Workspace]),
		WithSuccess("Workspace created"))
}

// UpdateWorkspace validates and saves a workspace's name and description.
func (h *Hub) UpdateWorkspace(ctx context.Context, id string, in api.WorkspaceInput) (*models.Workspace, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := models.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	w, err := dispatch(ctx, h, h.Global(), h.Workspaces().Pool, "Workspaces", "Update",
		func(ctx context.Context) (*models.Workspace, error) { return h.client.UpdateWorkspace(ctx, id, in) },
		ifCached(h.Workspaces().Pool, upsertInto[models.Workspace]),
		WithSuccess("Workspace updated"))
	if err != nil {
		return nil, err
	}
	if h.WorkspaceID() == id {
		h.WorkspaceDetail(id).Set(*w)
	}
	return w, nil
}

// DeleteWorkspace deletes a workspace. Without force the gateway refuses
// a workspace that still has other members, with reason
// models.ReasonWorkspaceHasMembers. Deleting the active workspace tears
// down its realm.
func (h *Hub) DeleteWorkspace(ctx context.Context, id string, force bool) error {
	_, err := dispatch(ctx, h, h.Global(), h.Workspaces().Pool, "Workspaces", "Delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.client.DeleteWorkspace(ctx, id, force)
		},
		ifCached(h.Workspaces().Pool, removeFrom[models.Workspace](id)),
		WithSuccess("Workspace deleted"))
	if err != nil {
		return err
	}
	if h.WorkspaceID() == id {
		h.LeaveWorkspace()
	}
	return nil
}

// -- Members

// LoadMembers fetches a workspace's members.
func (h *Hub) LoadMembers(ctx context.Context, workspaceID string) (Collection[models.Member], error) {
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.Members(workspaceID).Pool, "Members", "List",
		func(ctx context.Context) (Collection[models.Member], error) {
			items, err := h.client.ListMembers(ctx, workspaceID)
			if err != nil {
				return Collection[models.Member]{}, err
			}
			return NewCollection(items, nil), nil
		}, Replace[Collection[models.Member]])
}

// UpdateMemberAccess changes a member's role. A cached member is patched
// optimistically and reverted if the gateway refuses.
func (h *Hub) UpdateMemberAccess(ctx context.Context, workspaceID, userID string, level models.AccessLevel) (*models.Member, error) {
	if !level.Valid() {
		return nil, output.ErrValidation("access level", "must be one of OWNER, MEMBER, VIEWER")
	}
	pool := h.Members(workspaceID)
	patch := pool.Patch(userID, func(m models.Member) models.Member {
		m.AccessLevel = level
		return m
	})
	m, err := dispatch(ctx, h, h.EnsureWorkspace(workspaceID), pool.Pool, "Members", "Update",
		func(ctx context.Context) (*models.Member, error) {
			return h.client.UpdateMember(ctx, workspaceID, userID, level)
		},
		ifCached(pool.Pool, upsertInto[models.Member]),
		WithSuccess("Access updated"))
	if err != nil {
		patch.Revert()
		return nil, err
	}
	return m, nil
}

// RemoveMember removes a member from a workspace.
func (h *Hub) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	_, err := dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.Members(workspaceID).Pool, "Members", "Remove",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.client.RemoveMember(ctx, workspaceID, userID)
		},
		ifCached(h.Members(workspaceID).Pool, removeFrom[models.Member](userID)),
		WithSuccess("Member removed"))
	return err
}

// -- Invite link

func (h *Hub) fetchInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	link, err := h.client.GetInviteLink(ctx, workspaceID)
	var e *output.Error
	if errors.As(err, &e) && e.Code == output.CodeNotFound {
		return nil, nil
	}
	return link, err
}

// LoadInviteLink fetches the workspace's invite link. A nil link with a
// nil error means none has been generated.
func (h *Hub) LoadInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.InviteLink(workspaceID), "Invites", "Get",
		func(ctx context.Context) (*models.InviteLink, error) { return h.fetchInviteLink(ctx, workspaceID) },
		Replace[*models.InviteLink])
}

// GenerateInviteLink creates the invite link, or returns the existing one.
func (h *Hub) GenerateInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.InviteLink(workspaceID), "Invites", "Generate",
		func(ctx context.Context) (*models.InviteLink, error) {
			return h.client.GenerateInviteLink(ctx, workspaceID)
		},
		Replace[*models.InviteLink],
		WithSuccess("Invite link generated"))
}

// ResetInviteLink invalidates the current token. On success the cached
// link is replaced by the new one before ResetInviteLink returns.
func (h *Hub) ResetInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.InviteLink(workspaceID), "Invites", "Reset",
		func(ctx context.Context) (*models.InviteLink, error) {
			return h.client.ResetInviteLink(ctx, workspaceID)
		},
		Replace[*models.InviteLink],
		WithSuccess("Invite link reset"))
}

// JoinWorkspace redeems an invite token and adds the workspace to the list.
func (h *Hub) JoinWorkspace(ctx context.Context, token string) (*models.Workspace, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, output.ErrValidation("token", "must not be empty")
	}
	w, err := dispatch(ctx, h, h.Global(), h.Workspaces().Pool, "Workspaces", "Join",
		func(ctx context.Context) (*models.Workspace, error) { return h.client.JoinWorkspace(ctx, token) },
		ifCached(h.Workspaces().Pool, upsertInto[models.Workspace]),
		WithSuccess("Joined workspace"))
	if err != nil {
		return nil, err
	}
	h.Workspaces().Invalidate()
	return w, nil
}

// ifCached returns apply when p holds data, else nil so that a collection
// never loaded is not marked as loaded by a single-record response.
func ifCached[T, R any](p *Pool[T], apply func(T, bool, R) T) func(T, bool, R) T {
	if !p.Get().HasData {
		return nil
	}
	return apply
}

// upsertInto adds or replaces the response record when the collection is cached.
func upsertInto[T models.Record](cur Collection[T], has bool, resp *T) Collection[T] {
	if !has || resp == nil {
		return cur
	}
	return cur.Upsert(*resp)
}

// prependTo adds the response record at the top when the collection is cached.
func prependTo[T models.Record](cur Collection[T], has bool, resp *T) Collection[T] {
	if !has || resp == nil {
		return cur
	}
	return cur.Prepend(*resp)
}

func removeFrom[T models.Record](id string) func(Collection[T], bool, struct{}) Collection[T] {
	return func(cur Collection[T], has bool, _ struct{}) Collection[T] {
		if !has {
			return cur
		}
		return cur.Without(id)
	}
}
