package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

func TestWorkspacesListEmptyShowsOnboarding(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewWorkspacesCmd(), []string{"delete", gatewaytest.WorkspaceID, "--force"})
	require.NoError(t, err)

	res, err := env.run(t, NewWorkspacesCmd(), []string{"list"}, withoutWorkspace())
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Empty(t, decode[[]models.Workspace](t, res.Data))
	assert.Contains(t, res.Summary, "No workspaces yet")
	create, ok := res.crumb("create")
	require.True(t, ok)
	assert.Contains(t, create.Cmd, "taskhub workspaces create")
	_, ok = res.crumb("join")
	assert.True(t, ok)
}

func TestWorkspacesListEmptyInteractiveCreatesFirst(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, NewWorkspacesCmd(), []string{"delete", gatewaytest.WorkspaceID, "--force"})
	require.NoError(t, err)

	stub(t, &promptNewWorkspace, func(valid func(string) error) (tui.NewWorkspace, error) {
		require.Error(t, valid(""))
		return tui.NewWorkspace{Name: "Studio"}, nil
	})

	res, err := env.run(t, NewWorkspacesCmd(), []string{"list"}, withoutWorkspace(), interactive())
	require.NoError(t, err)

	ws := decode[models.Workspace](t, res.Data)
	assert.Equal(t, "Studio", ws.Name)
	assert.Equal(t, "Created workspace Studio", res.Summary)
	_, ok := env.gw.Workspace(ws.ID)
	assert.True(t, ok)
}

func TestWorkspacesList(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewWorkspacesCmd(), []string{"list"})
	require.NoError(t, err)

	list := decode[[]models.Workspace](t, res.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0].Name)
	assert.Equal(t, "1 workspace(s)", res.Summary)
}

func TestWorkspacesDeleteWithMembersNeedsForce(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewWorkspacesCmd(), []string{"delete", gatewaytest.WorkspaceID, "--force=false"})
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeUsage, e.Code)
	assert.Contains(t, e.Hint, "--force")

	_, ok := env.gw.Workspace(gatewaytest.WorkspaceID)
	assert.True(t, ok)
}

func TestWorkspacesCreateRequiresName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewWorkspacesCmd(), []string{"create"})
	require.Error(t, err)
	assert.Equal(t, "Workspace name is required", output.AsError(err).Message)
}

func TestWorkspacesSwitchByName(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewWorkspacesCmd(), []string{"switch", "acme"}, withoutWorkspace())
	require.NoError(t, err)
	assert.Equal(t, "Default workspace is now Acme", res.Summary)

	_, err = env.run(t, NewWorkspacesCmd(), []string{"switch", "Nowhere"})
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeNotFound, e.Code)
	assert.Contains(t, e.Hint, "taskhub workspaces list")

	_, err = env.run(t, NewWorkspacesCmd(), []string{"create", "--name", "ACME"})
	require.NoError(t, err)

	_, err = env.run(t, NewWorkspacesCmd(), []string{"switch", "Acme"})
	require.Error(t, err)
	e = output.AsError(err)
	assert.Equal(t, output.CodeAmbiguous, e.Code)
	assert.Contains(t, e.Hint, "Acme (w1)")
}
