package api

import (
	"context"
	"net/url"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// ProjectInput is the body for creating or updating a project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListProjects returns one page of a workspace's projects.
// query carries the page, sort and filter parameters.
func (c *Client) ListProjects(ctx context.Context, workspaceID string, query url.Values) (*models.Page[models.Project], error) {
	return decodePage[models.Project](c.Get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/projects", Query(query)))
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return decodeOne[models.Project](c.Get(ctx, "/projects/"+url.PathEscape(id)))
}

// CreateProject creates a project in a workspace.
func (c *Client) CreateProject(ctx context.Context, workspaceID string, in ProjectInput) (*models.Project, error) {
	return decodeOne[models.Project](c.Post(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/projects", in))
}

// UpdateProject replaces a project's name and description.
func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (*models.Project, error) {
	return decodeOne[models.Project](c.Put(ctx, "/projects/"+url.PathEscape(id), in))
}

// DeleteProject deletes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/projects/"+url.PathEscape(id), nil)
	return err
}

// ListProjectMembers returns the members with access to a project.
func (c *Client) ListProjectMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	resp, err := c.Get(ctx, "/projects/"+url.PathEscape(projectID)+"/members")
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Member](resp)
}
