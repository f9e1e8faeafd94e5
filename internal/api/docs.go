package api

import (
	"context"
	"encoding/json"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// GetDocumentation returns an entity's documentation.
func (c *Client) GetDocumentation(ctx context.Context, entityType, entityID string) (*models.Documentation, error) {
	path, err := models.DocumentationPath(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Documentation](c.Get(ctx, path))
}

// SaveDocumentation replaces an entity's documentation with content.
func (c *Client) SaveDocumentation(ctx context.Context, entityType, entityID string, content json.RawMessage) (*models.Documentation, error) {
	path, err := models.DocumentationPath(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Documentation](c.Put(ctx, path, map[string]json.RawMessage{"content": content}))
}
