package data

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// ActivityScope names the kind of entity an activity feed belongs to.
type ActivityScope string

const (
	ActivityWorkspace ActivityScope = "workspaces"
	ActivityProject   ActivityScope = "projects"
	ActivityTask      ActivityScope = "tasks"
)

// ParseActivityScope accepts workspace, project or task (singular or plural).
func ParseActivityScope(s string) (ActivityScope, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "workspace":
		return ActivityWorkspace, nil
	case "project":
		return ActivityProject, nil
	case "task":
		return ActivityTask, nil
	}
	return "", output.ErrValidation("scope", "must be workspace, project or task")
}

// -- Comments

// LoadComments fetches one page of a task's comments.
func (h *Hub) LoadComments(ctx context.Context, taskID string, st filter.State) (Collection[models.Comment], error) {
	return dispatch(ctx, h, h.inner(), h.Comments().Get(taskID), "Comments", "List",
		func(ctx context.Context) (Collection[models.Comment], error) {
			page, err := h.client.ListComments(ctx, taskID, st.Query())
			if err != nil {
				return Collection[models.Comment]{}, err
			}
			return FromPage(page), nil
		}, Replace[Collection[models.Comment]])
}

// AddComment posts a comment and shows it first in the cached page.
func (h *Hub) AddComment(ctx context.Context, taskID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, output.ErrValidation("content", "must not be empty")
	}
	pool := h.Comments().Get(taskID)
	return dispatch(ctx, h, h.inner(), pool, "Comments", "Create",
		func(ctx context.Context) (*models.Comment, error) { return h.client.AddComment(ctx, taskID, content) },
		ifCached(pool, prependTo[models.Comment]),
		WithSuccess("Comment added"))
}

// DeleteComment deletes a comment and drops it from the cached page.
func (h *Hub) DeleteComment(ctx context.Context, taskID, commentID string) error {
	pool := h.Comments().Get(taskID)
	_, err := dispatch(ctx, h, h.inner(), pool, "Comments", "Delete",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, h.client.DeleteComment(ctx, commentID) },
		ifCached(pool, removeFrom[models.Comment](commentID)),
		WithSuccess("Comment deleted"))
	return err
}

// -- Activities

// LoadActivities fetches one page of an entity's activity feed.
func (h *Hub) LoadActivities(ctx context.Context, scope ActivityScope, id string, st filter.State) (Collection[models.Activity], error) {
	r := h.inner()
	switch scope {
	case ActivityWorkspace:
		r = h.EnsureWorkspace(id)
	case ActivityProject:
		r = h.EnsureProject(id)
	case ActivityTask:
	default:
		return Collection[models.Activity]{}, output.ErrValidation("scope", "must be workspace, project or task")
	}
	return dispatch(ctx, h, r, h.Activities().Get(string(scope)+":"+id), "Activities", "List",
		func(ctx context.Context) (Collection[models.Activity], error) {
			page, err := h.client.ListActivities(ctx, string(scope), id, st.Query())
			if err != nil {
				return Collection[models.Activity]{}, err
			}
			return FromPage(page), nil
		}, Replace[Collection[models.Activity]])
}

// -- Documentation

// FetchDocumentation loads an entity's documentation from the gateway.
func (h *Hub) FetchDocumentation(ctx context.Context, entityType, entityID string) (models.Documentation, error) {
	return dispatch(ctx, h, h.inner(), h.Documentation().Get(entityType+":"+entityID), "Documentation", "Get",
		func(ctx context.Context) (models.Documentation, error) {
			d, err := h.client.GetDocumentation(ctx, entityType, entityID)
			if err != nil {
				return models.Documentation{}, err
			}
			return *d, nil
		}, Replace[models.Documentation])
}

// SaveDocumentation sends the full content to the gateway.
func (h *Hub) SaveDocumentation(ctx context.Context, entityType, entityID string, content json.RawMessage) (models.Documentation, error) {
	return dispatch(ctx, h, h.inner(), h.Documentation().Get(entityType+":"+entityID), "Documentation", "Save",
		func(ctx context.Context) (models.Documentation, error) {
			d, err := h.client.SaveDocumentation(ctx, entityType, entityID, content)
			if err != nil {
				return models.Documentation{}, err
			}
			return *d, nil
		}, Replace[models.Documentation], WithSuccess("Documentation saved"))
}
