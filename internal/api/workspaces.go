package api

import (
	"context"
	"net/url"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// WorkspaceInput is the body for creating or updating a workspace.
type WorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListWorkspaces returns every workspace the user belongs to.
func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	resp, err := c.Get(ctx, "/workspaces")
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Workspace](resp)
}

// GetWorkspace returns one workspace.
func (c *Client) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	return decodeOne[models.Workspace](c.Get(ctx, "/workspaces/"+url.PathEscape(id)))
}

// CreateWorkspace creates a workspace owned by the current user.
func (c *Client) CreateWorkspace(ctx context.Context, in WorkspaceInput) (*models.Workspace, error) {
	return decodeOne[models.Workspace](c.Post(ctx, "/workspaces", in))
}

// UpdateWorkspace replaces a workspace's name and description.
func (c *Client) UpdateWorkspace(ctx context.Context, id string, in WorkspaceInput) (*models.Workspace, error) {
	return decodeOne[models.Workspace](c.Put(ctx, "/workspaces/"+url.PathEscape(id), in))
}

// DeleteWorkspace deletes a workspace. force deletes it even when it has members.
func (c *Client) DeleteWorkspace(ctx context.Context, id string, force bool) error {
	var opts []RequestOption
	if force {
		opts = append(opts, Query(url.Values{"force": {"true"}}))
	}
	_, err := c.Delete(ctx, "/workspaces/"+url.PathEscape(id), nil, opts...)
	return err
}

// ListMembers returns a workspace's members.
func (c *Client) ListMembers(ctx context.Context, workspaceID string) ([]models.Member, error) {
	resp, err := c.Get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/members")
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Member](resp)
}

// UpdateMember changes a member's access level.
func (c *Client) UpdateMember(ctx context.Context, workspaceID, userID string, level models.AccessLevel) (*models.Member, error) {
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/members/" + url.PathEscape(userID)
	return decodeOne[models.Member](c.Put(ctx, path, map[string]models.AccessLevel{"accessLevel": level}))
}

// RemoveMember removes a member from a workspace.
func (c *Client) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/members/" + url.PathEscape(userID)
	_, err := c.Delete(ctx, path, nil)
	return err
}

// GetInviteLink returns the workspace's current invite link.
// A 404 means no link has been generated yet.
func (c *Client) GetInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return decodeOne[models.InviteLink](c.Get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/invite-link"))
}

// GenerateInviteLink creates an invite link, or returns the existing one.
func (c *Client) GenerateInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return decodeOne[models.InviteLink](c.Post(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/invite-link", nil))
}

// ResetInviteLink invalidates the current token and issues a new one.
func (c *Client) ResetInviteLink(ctx context.Context, workspaceID string) (*models.InviteLink, error) {
	return decodeOne[models.InviteLink](c.Post(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/invite-link/reset", nil))
}

// JoinWorkspace redeems an invite token.
func (c *Client) JoinWorkspace(ctx context.Context, token string) (*models.Workspace, error) {
	return decodeOne[models.Workspace](c.Post(ctx, "/workspaces/join", map[string]string{"token": token}))
}

func decodeOne[T any](resp *Response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	v, err := Decode[T](resp)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodePage[T any](resp *Response, err error) (*models.Page[T], error) {
	if err != nil {
		return nil, err
	}
	p, err := Decode[models.Page[T]](resp)
	if err != nil {
		return nil, err
	}
	if p.Data == nil {
		p.Data = []T{}
	}
	return &p, nil
}
