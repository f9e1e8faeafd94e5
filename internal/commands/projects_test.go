package commands

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

func TestProjectsShowOverview(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewProjectsCmd(), []string{"show", gatewaytest.ProjectID})
	require.NoError(t, err)

	ov := decode[projectOverview](t, res.Data)
	require.NotNil(t, ov.Project)
	assert.Equal(t, "Launch", ov.Project.Name)
	assert.Len(t, ov.Members, 2)
	assert.Empty(t, ov.Errors)
	assert.Equal(t, "Launch (2 member(s), 4 task(s))", res.Summary)
	assert.Equal(t, 1, env.gw.Count(http.MethodGet, "/projects/p1"))
	assert.Equal(t, 1, env.gw.Count(http.MethodGet, "/projects/p1/members"))

	items := recents.NewStore(env.cacheDir).Get(recents.KindProject, gatewaytest.WorkspaceID)
	require.NotEmpty(t, items)
	assert.Equal(t, gatewaytest.ProjectID, items[0].ID)
}

func TestProjectsShowKeepsHalfThatLoaded(t *testing.T) {
	env := newTestEnv(t)
	env.gw.FailNext(http.MethodGet, "/projects/p1/members", http.StatusForbidden, "")

	res, err := env.run(t, NewProjectsCmd(), []string{"show", gatewaytest.ProjectID})
	require.NoError(t, err)

	ov := decode[projectOverview](t, res.Data)
	require.NotNil(t, ov.Project)
	assert.Equal(t, "Launch", ov.Project.Name)
	assert.Empty(t, ov.Members)
	assert.Contains(t, ov.Errors, "members")
	assert.NotContains(t, ov.Errors, "project")
}

func TestProjectsShowBothFail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewProjectsCmd(), []string{"show", "nope"})
	require.Error(t, err)
	assert.Equal(t, output.CodeNotFound, output.AsError(err).Code)
}

func TestProjectsListPages(t *testing.T) {
	env := newTestEnv(t)
	env.gw.AddProjects(gatewaytest.WorkspaceID, 25)

	res, err := env.run(t, NewProjectsCmd(), []string{"list"})
	require.NoError(t, err)
	assert.Len(t, decode[[]models.Project](t, res.Data), 20)
	assert.Equal(t, "Page 1 of 2 (26 total)", res.Summary)
	next, ok := res.crumb("next")
	require.True(t, ok)
	assert.Equal(t, "taskhub projects list --workspace w1 --page 2", next.Cmd)

	res, err = env.run(t, NewProjectsCmd(), []string{"list", "--search", "launch"})
	require.NoError(t, err)
	found := decode[[]models.Project](t, res.Data)
	require.Len(t, found, 1)
	assert.Equal(t, gatewaytest.ProjectID, found[0].ID)
}

func TestStatsReportCacheFetches(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewProjectsCmd(), []string{"list"}, func(a *appctx.App) { a.Flags.Stats = true })
	require.NoError(t, err)

	var cache struct {
		Fetches     int `json:"fetches"`
		Errors      int `json:"errors"`
		Collections []struct {
			Key     string `json:"key"`
			State   string `json:"state"`
			Fetches int    `json:"fetches"`
		} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(res.Meta["cache"], &cache))
	assert.Positive(t, cache.Fetches)
	assert.Zero(t, cache.Errors)
	require.NotEmpty(t, cache.Collections)
	assert.Positive(t, cache.Collections[0].Fetches)
	assert.NotEmpty(t, cache.Collections[0].State)
	assert.Contains(t, res.Meta, "stats")
}

func TestProjectsListCounts(t *testing.T) {
	env := newTestEnv(t)
	env.gw.AddProjects(gatewaytest.WorkspaceID, 2)
	env.gw.FailNext(http.MethodGet, "/projects/px01/board", http.StatusForbidden, "")

	res, err := env.run(t, NewProjectsCmd(), []string{"list", "--counts"})
	require.NoError(t, err)
	assert.Len(t, decode[[]models.Project](t, res.Data), 3)

	counts := decode[map[string]map[models.TaskStatus]int](t, res.Meta["task_counts"])
	assert.Equal(t, map[models.TaskStatus]int{
		models.StatusTodo: 2, models.StatusInProgress: 1, models.StatusInReview: 0, models.StatusDone: 1,
	}, counts[gatewaytest.ProjectID])
	assert.Zero(t, counts["px02"][models.StatusTodo])
	assert.NotContains(t, counts, "px01")

	failed := decode[map[string]string](t, res.Meta["task_count_errors"])
	assert.Contains(t, failed, "px01")
	assert.Equal(t, 1, env.gw.Count(http.MethodGet, "/projects/p1/board"))
}

func TestProjectsListNeedsWorkspace(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewProjectsCmd(), []string{"list"}, withoutWorkspace())
	require.Error(t, err)
	assert.Equal(t, "No workspace specified", output.AsError(err).Message)
}

func TestProjectsCreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewProjectsCmd(), []string{"create", "--name", "Roadmap"})
	require.NoError(t, err)
	p := decode[models.Project](t, res.Data)
	assert.Equal(t, "Roadmap", p.Name)
	assert.Equal(t, gatewaytest.WorkspaceID, p.WorkspaceID)

	_, err = env.run(t, NewProjectsCmd(), []string{"update", p.ID})
	require.Error(t, err)

	res, err = env.run(t, NewProjectsCmd(), []string{"update", p.ID, "--description", "Next quarter"})
	require.NoError(t, err)
	updated := decode[models.Project](t, res.Data)
	assert.Equal(t, "Roadmap", updated.Name)
	assert.Equal(t, "Next quarter", updated.Description)

	res, err = env.run(t, NewProjectsCmd(), []string{"delete", p.ID, "--force"})
	require.NoError(t, err)
	assert.Equal(t, "Project deleted", res.Summary)

	assert.Empty(t, recents.NewStore(env.cacheDir).Get(recents.KindProject, ""))
}
