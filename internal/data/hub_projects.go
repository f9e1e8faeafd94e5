package data

import (
	"context"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
)

// LoadProjects fetches one page of a workspace's projects.
func (h *Hub) LoadProjects(ctx context.Context, workspaceID string, st filter.State) (Collection[models.Project], error) {
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), h.Projects(workspaceID).Pool, "Projects", "List",
		func(ctx context.Context) (Collection[models.Project], error) {
			page, err := h.client.ListProjects(ctx, workspaceID, st.Query())
			if err != nil {
				return Collection[models.Project]{}, err
			}
			return FromPage(page), nil
		}, Replace[Collection[models.Project]])
}

// LoadProject fetches one project into the project realm.
func (h *Hub) LoadProject(ctx context.Context, id string) (models.Project, error) {
	return dispatch(ctx, h, h.EnsureProject(id), h.ProjectDetail(id), "Projects", "Get",
		func(ctx context.Context) (models.Project, error) {
			p, err := h.client.GetProject(ctx, id)
			if err != nil {
				return models.Project{}, err
			}
			return *p, nil
		}, Replace[models.Project])
}

// LoadProjectMembers fetches the members with access to a project.
func (h *Hub) LoadProjectMembers(ctx context.Context, id string) (Collection[models.Member], error) {
	return dispatch(ctx, h, h.EnsureProject(id), h.ProjectMembers(id).Pool, "Members", "List",
		func(ctx context.Context) (Collection[models.Member], error) {
			items, err := h.client.ListProjectMembers(ctx, id)
			if err != nil {
				return Collection[models.Member]{}, err
			}
			return NewCollection(items, nil), nil
		}, Replace[Collection[models.Member]])
}

// LoadProjectOverview fetches a project and its members concurrently.
// Each lands in its own pool; if one fails the other keeps its result.
func (h *Hub) LoadProjectOverview(ctx context.Context, id string) error {
	h.EnsureProject(id)
	return All(ctx,
		func(ctx context.Context) error { _, err := h.LoadProject(ctx, id); return err },
		func(ctx context.Context) error { _, err := h.LoadProjectMembers(ctx, id); return err },
	)
}

// TaskCounts is the number of tasks in each status column of a project.
type TaskCounts map[models.TaskStatus]int

func countTasks(tasks []models.Task) TaskCounts {
	counts := make(TaskCounts, len(models.TaskStatuses))
	for _, st := range models.TaskStatuses {
		counts[st] = 0
	}
	for _, t := range tasks {
		if t.Status.Valid() {
			counts[t.Status]++
		}
	}
	return counts
}

// LoadTaskCounts counts the tasks of several projects in a workspace
// concurrently. Each project's counts or error stand on their own.
func (h *Hub) LoadTaskCounts(ctx context.Context, workspaceID string, projectIDs []string) []Result[TaskCounts] {
	r := h.EnsureWorkspace(workspaceID)
	ctx, cancel := bind(ctx, r)
	defer cancel()
	pools := h.TaskCounts(workspaceID)
	return FanOut(ctx, projectIDs, func(ctx context.Context, id string) (TaskCounts, error) {
		return pools.Get(id).Load(ctx)
	})
}

// CreateProject validates and creates a project in a workspace.
func (h *Hub) CreateProject(ctx context.Context, workspaceID string, in api.ProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := models.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	pool := h.Projects(workspaceID)
	return dispatch(ctx, h, h.EnsureWorkspace(workspaceID), pool.Pool, "Projects", "Create",
		func(ctx context.Context) (*models.Project, error) {
			return h.client.CreateProject(ctx, workspaceID, in)
		},
		ifCached(pool.Pool, prependTo[models.Project]),
		WithSuccess("Project created"))
}

// UpdateProject validates and saves a project's name and description.
func (h *Hub) UpdateProject(ctx context.Context, id string, in api.ProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := models.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	p, err := dispatch(ctx, h, h.EnsureProject(id), h.ProjectDetail(id), "Projects", "Update",
		func(ctx context.Context) (*models.Project, error) { return h.client.UpdateProject(ctx, id, in) },
		func(_ models.Project, _ bool, p *models.Project) models.Project { return *p },
		WithSuccess("Project updated"))
	if err != nil {
		return nil, err
	}
	if list := h.cachedProjects(); list != nil {
		list.Patch(id, func(models.Project) models.Project { return *p })
	}
	return p, nil
}

// DeleteProject deletes a project and leaves its realm if it is active.
func (h *Hub) DeleteProject(ctx context.Context, id string) error {
	_, err := dispatch(ctx, h, h.EnsureProject(id), h.ProjectDetail(id), "Projects", "Delete",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, h.client.DeleteProject(ctx, id) },
		nil)
	if err != nil {
		return err
	}
	if list := h.cachedProjects(); list != nil {
		gen := list.SetLoading()
		list.Commit(gen, func(c Collection[models.Project], _ bool) Collection[models.Project] { return c.Without(id) })
		list.SetSuccess("Project deleted")
	}
	h.LeaveProject()
	return nil
}

// cachedProjects returns the active workspace's project pool if it exists.
func (h *Hub) cachedProjects() *CollectionPool[models.Project] {
	ws := h.Workspace()
	if ws == nil {
		return nil
	}
	p, _ := ws.Pool("projects:" + h.WorkspaceID()).(*CollectionPool[models.Project])
	if p == nil || !p.Get().HasData {
		return nil
	}
	return p
}

// -- Tasks

// LoadTasks fetches one page of a project's tasks.
func (h *Hub) LoadTasks(ctx context.Context, projectID string, st filter.State) (Collection[models.Task], error) {
	return dispatch(ctx, h, h.EnsureProject(projectID), h.Tasks(projectID).Pool, "Tasks", "List",
		func(ctx context.Context) (Collection[models.Task], error) {
			page, err := h.client.ListTasks(ctx, projectID, st.Query())
			if err != nil {
				return Collection[models.Task]{}, err
			}
			return FromPage(page), nil
		}, Replace[Collection[models.Task]])
}

// LoadTask fetches one task.
func (h *Hub) LoadTask(ctx context.Context, id string) (models.Task, error) {
	return dispatch(ctx, h, h.inner(), h.TaskDetails().Get(id), "Tasks", "Get",
		func(ctx context.Context) (models.Task, error) {
			t, err := h.client.GetTask(ctx, id)
			if err != nil {
				return models.Task{}, err
			}
			return *t, nil
		}, Replace[models.Task])
}

// CreateTask validates and creates a task.
func (h *Hub) CreateTask(ctx context.Context, projectID string, in api.TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := models.ValidateName("title", in.Title); err != nil {
		return nil, err
	}
	if err := validateTaskEnums(in.Status, in.Priority); err != nil {
		return nil, err
	}
	pool := h.Tasks(projectID)
	t, err := dispatch(ctx, h, h.EnsureProject(projectID), pool.Pool, "Tasks", "Create",
		func(ctx context.Context) (*models.Task, error) { return h.client.CreateTask(ctx, projectID, in) },
		ifCached(pool.Pool, prependTo[models.Task]),
		WithSuccess("Task created"))
	if err != nil {
		return nil, err
	}
	h.Board(projectID).Invalidate()
	return t, nil
}

// UpdateTask applies a partial update. A cached task in the project list
// is patched optimistically and reverted if the gateway refuses.
func (h *Hub) UpdateTask(ctx context.Context, id string, in api.TaskUpdate) (*models.Task, error) {
	if in.Empty() {
		return nil, errNothingToUpdate
	}
	if in.Title != nil {
		*in.Title = strings.TrimSpace(*in.Title)
		if err := models.ValidateName("title", *in.Title); err != nil {
			return nil, err
		}
	}
	var st models.TaskStatus
	var pr models.Priority
	if in.Status != nil {
		st = *in.Status
	}
	if in.Priority != nil {
		pr = *in.Priority
	}
	if err := validateTaskEnums(st, pr); err != nil {
		return nil, err
	}

	var patch *Patch
	list := h.cachedTasks()
	if list != nil {
		patch = list.Patch(id, func(t models.Task) models.Task { return applyTaskUpdate(t, in) })
	}
	t, err := dispatch(ctx, h, h.inner(), h.TaskDetails().Get(id), "Tasks", "Update",
		func(ctx context.Context) (*models.Task, error) { return h.client.UpdateTask(ctx, id, in) },
		func(_ models.Task, _ bool, t *models.Task) models.Task { return *t },
		WithSuccess("Task updated"))
	if err != nil {
		patch.Revert()
		return nil, err
	}
	if list != nil {
		list.Patch(id, func(models.Task) models.Task { return *t })
	}
	if pid := h.ProjectID(); pid != "" {
		h.Board(pid).Invalidate()
	}
	return t, nil
}

// DeleteTask deletes a task.
func (h *Hub) DeleteTask(ctx context.Context, id string) error {
	_, err := dispatch(ctx, h, h.inner(), h.TaskDetails().Get(id), "Tasks", "Delete",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, h.client.DeleteTask(ctx, id) },
		nil, WithSuccess("Task deleted"))
	if err != nil {
		return err
	}
	if list := h.cachedTasks(); list != nil {
		gen := list.SetLoading()
		list.Commit(gen, func(c Collection[models.Task], _ bool) Collection[models.Task] { return c.Without(id) })
	}
	if pid := h.ProjectID(); pid != "" {
		h.Board(pid).Invalidate()
	}
	h.TaskDetails().Drop(id)
	h.Comments().Drop(id)
	h.Documentation().Drop(models.EntityTask + ":" + id)
	return nil
}

func (h *Hub) cachedTasks() *CollectionPool[models.Task] {
	pr := h.Project()
	if pr == nil {
		return nil
	}
	p, _ := pr.Pool("tasks:" + h.ProjectID()).(*CollectionPool[models.Task])
	if p == nil || !p.Get().HasData {
		return nil
	}
	return p
}

func validateTaskEnums(st models.TaskStatus, pr models.Priority) error {
	if st != "" && !st.Valid() {
		_, err := models.ParseStatus(string(st))
		return err
	}
	if pr != "" && !pr.Valid() {
		_, err := models.ParsePriority(string(pr))
		return err
	}
	return nil
}

func applyTaskUpdate(t models.Task, in api.TaskUpdate) models.Task {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssigneeID != nil {
		t.AssigneeID = *in.AssigneeID
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	return t
}
