package api

import (
	"context"
	"net/url"
	"time"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// TaskInput is the body for creating a task.
type TaskInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
	Priority    models.Priority   `json:"priority,omitempty"`
	AssigneeID  string            `json:"assigneeId,omitempty"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
}

// TaskUpdate is a partial task update. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *models.TaskStatus `json:"status,omitempty"`
	Priority    *models.Priority   `json:"priority,omitempty"`
	AssigneeID  *string            `json:"assigneeId,omitempty"`
	DueDate     *time.Time         `json:"dueDate,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.AssigneeID == nil && u.DueDate == nil
}

// MoveInput is the body of PATCH /tasks/{id}/move.
type MoveInput struct {
	Status   models.TaskStatus `json:"status"`
	Position int               `json:"position"`
}

// ListTasks returns one page of a project's tasks.
func (c *Client) ListTasks(ctx context.Context, projectID string, query url.Values) (*models.Page[models.Task], error) {
	return decodePage[models.Task](c.Get(ctx, "/projects/"+url.PathEscape(projectID)+"/tasks", Query(query)))
}

// Board returns every task of a project, ordered by status and position.
func (c *Client) Board(ctx context.Context, projectID string) ([]models.Task, error) {
	resp, err := c.Get(ctx, "/projects/"+url.PathEscape(projectID)+"/board")
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Task](resp)
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return decodeOne[models.Task](c.Get(ctx, "/tasks/"+url.PathEscape(id)))
}

// CreateTask creates a task in a project.
func (c *Client) CreateTask(ctx context.Context, projectID string, in TaskInput) (*models.Task, error) {
	return decodeOne[models.Task](c.Post(ctx, "/projects/"+url.PathEscape(projectID)+"/tasks", in))
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskUpdate) (*models.Task, error) {
	return decodeOne[models.Task](c.Put(ctx, "/tasks/"+url.PathEscape(id), in))
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/tasks/"+url.PathEscape(id), nil)
	return err
}

// MoveTask moves a task to a column and position.
func (c *Client) MoveTask(ctx context.Context, id string, in MoveInput) (*models.Task, error) {
	return decodeOne[models.Task](c.Patch(ctx, "/tasks/"+url.PathEscape(id)+"/move", in))
}

// ListComments returns one page of a task's comments.
func (c *Client) ListComments(ctx context.Context, taskID string, query url.Values) (*models.Page[models.Comment], error) {
	return decodePage[models.Comment](c.Get(ctx, "/tasks/"+url.PathEscape(taskID)+"/comments", Query(query)))
}

// AddComment posts a comment on a task.
func (c *Client) AddComment(ctx context.Context, taskID, content string) (*models.Comment, error) {
	return decodeOne[models.Comment](c.Post(ctx, "/tasks/"+url.PathEscape(taskID)+"/comments", map[string]string{"content": content}))
}

// DeleteComment deletes a comment.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/comments/"+url.PathEscape(id), nil)
	return err
}

// ListActivities returns one page of an entity's activity feed.
// scope is "workspaces", "projects" or "tasks".
func (c *Client) ListActivities(ctx context.Context, scope, id string, query url.Values) (*models.Page[models.Activity], error) {
	return decodePage[models.Activity](c.Get(ctx, "/"+scope+"/"+url.PathEscape(id)+"/activities", Query(query)))
}
