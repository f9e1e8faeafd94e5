package resolve

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// Project resolves the project ID: --project, then project_id from config,
// then a picker over workspaceID's projects.
func (r *Resolver) Project(ctx context.Context, workspaceID string) (*Value, error) {
	if r.flags.Project != "" {
		return &Value{ID: r.flags.Project, Source: SourceFlag}, nil
	}
	if r.config.ProjectID != "" {
		return &Value{ID: r.config.ProjectID, Source: SourceConfig}, nil
	}
	if !r.IsInteractive() {
		return nil, output.ErrUsageHint("No project specified",
			"Use --project or set project_id with: taskhub config set project_id <id>")
	}
	if workspaceID == "" {
		return nil, output.ErrUsage("Workspace must be resolved before picking a project")
	}

	fetch := ProjectPages(r.hub.LoadProjects, workspaceID)
	selected, err := r.pick(ctx, fetch,
		tui.WithPickerTitle("Select a project"),
		tui.WithRecent(r.recent(recents.KindProject, workspaceID)),
		tui.WithAutoSelectSingle())
	if err != nil {
		return nil, fmt.Errorf("project selection failed: %w", err)
	}
	if selected == nil {
		return nil, output.ErrUsage("project selection canceled")
	}
	r.Remember(recents.KindProject, *selected, workspaceID)
	return &Value{ID: selected.ID, Title: selected.Title, Source: SourcePrompt}, nil
}

// ProjectLoader loads one page of a workspace's projects.
type ProjectLoader func(ctx context.Context, workspaceID string, st filter.State) (data.Collection[models.Project], error)

// ProjectPages pages through a workspace's projects, newest first, one
// gateway page per picker page.
func ProjectPages(load ProjectLoader, workspaceID string) tui.PageFetcher {
	return func(ctx context.Context, page int) (tui.Page, error) {
		st := filter.New().WithSort("createdAt", filter.Desc).WithPage(page)
		list, err := load(ctx, workspaceID, st)
		if err != nil {
			return tui.Page{}, err
		}
		out := tui.Page{Choices: make([]tui.Choice, len(list.Items))}
		for i, p := range list.Items {
			out.Choices[i] = projectChoice(p)
		}
		if list.Pagination != nil && list.Pagination.HasNext {
			out.Next = page + 1
		}
		return out, nil
	}
}

func projectChoice(p models.Project) tui.Choice {
	return tui.Choice{ID: p.ID, Title: p.Name, Detail: fmt.Sprintf("%d tasks", p.TasksCount)}
}
