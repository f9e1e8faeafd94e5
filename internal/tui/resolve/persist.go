package resolve

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// WithConfirm replaces the save-as-default prompt.
func WithConfirm(c ConfirmFunc) Option {
	return func(r *Resolver) { r.confirm = c }
}

// WithConfigPath sets the file defaults are saved to.
func WithConfigPath(path string) Option {
	return func(r *Resolver) { r.configPath = path }
}

func confirmDefault(message string) (bool, error) {
	return tui.Confirm(message, false)
}

// Persist writes key=value into the global config file.
func (r *Resolver) Persist(key, value string) error {
	if err := config.SetValue(r.configPath, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// offerDefault asks to save a prompted value so the next command does not
// ask again. Values from flags or config are left alone.
func (r *Resolver) offerDefault(v *Value, key, noun string) error {
	if v.Source != SourcePrompt {
		return nil
	}
	label := v.ID
	if v.Title != "" {
		label = v.Title
	}
	ok, err := r.confirm(fmt.Sprintf("Use %s as the default %s?", label, noun))
	if err != nil || !ok {
		return err
	}
	return r.Persist(key, v.ID)
}

// WorkspaceWithPersist resolves the workspace and offers to save a picked
// one as workspace_id.
func (r *Resolver) WorkspaceWithPersist(ctx context.Context) (*Value, error) {
	v, err := r.Workspace(ctx)
	if err != nil {
		return nil, err
	}
	return v, r.offerDefault(v, "workspace_id", "workspace")
}

// ProjectWithPersist resolves the project and offers to save a picked one
// as project_id.
func (r *Resolver) ProjectWithPersist(ctx context.Context, workspaceID string) (*Value, error) {
	v, err := r.Project(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return v, r.offerDefault(v, "project_id", "project")
}
