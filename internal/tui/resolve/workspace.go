package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// ErrNoWorkspaces means the user belongs to no workspace. Commands react
// with onboarding.
var ErrNoWorkspaces = output.ErrUsageHint("You are not a member of any workspace",
	`Create one with: taskhub workspaces create --name "<name>"`)

// Workspace resolves the workspace ID: --workspace, then workspace_id from
// config, then a picker. A single workspace is taken without asking.
func (r *Resolver) Workspace(ctx context.Context) (*Value, error) {
	if r.flags.Workspace != "" {
		return &Value{ID: r.flags.Workspace, Source: SourceFlag}, nil
	}
	if r.config.WorkspaceID != "" {
		return &Value{ID: r.config.WorkspaceID, Source: SourceConfig}, nil
	}
	if !r.IsInteractive() {
		return nil, output.ErrUsageHint("No workspace specified",
			"Use --workspace or run: taskhub workspaces switch <id>")
	}
	return r.PickWorkspace(ctx)
}

// PickWorkspace always asks, listing every workspace the user belongs to.
func (r *Resolver) PickWorkspace(ctx context.Context) (*Value, error) {
	list, err := r.hub.LoadWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	switch list.Len() {
	case 0:
		return nil, ErrNoWorkspaces
	case 1:
		w := list.Items[0]
		return &Value{ID: w.ID, Title: w.Name, Source: SourceDefault}, nil
	}

	choices := make([]tui.Choice, len(list.Items))
	for i, w := range list.Items {
		choices[i] = workspaceChoice(w)
	}
	selected, err := r.pick(ctx, tui.StaticPages(choices),
		tui.WithPickerTitle("Select a workspace"),
		tui.WithRecent(r.recent(recents.KindWorkspace, "")))
	if err != nil {
		return nil, fmt.Errorf("workspace selection failed: %w", err)
	}
	if selected == nil {
		return nil, output.ErrUsage("workspace selection canceled")
	}
	r.Remember(recents.KindWorkspace, *selected, "")
	return &Value{ID: selected.ID, Title: selected.Title, Source: SourcePrompt}, nil
}

func workspaceChoice(w models.Workspace) tui.Choice {
	detail := fmt.Sprintf("%d members", w.MembersCount)
	if w.AccessLevel != "" {
		detail = strings.ToLower(string(w.AccessLevel)) + ", " + detail
	}
	return tui.Choice{ID: w.ID, Title: w.Name, Detail: detail}
}
