package commands

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func readGlobalConfig(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(config.GlobalConfigPath())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestConfigSetAndUnset(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewConfigCmd(), []string{"set", "base_url", "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "Set base_url = https://api.example.com", res.Summary)

	_, err = env.run(t, NewConfigCmd(), []string{"set", "stats", "yes-please"})
	require.Error(t, err)

	_, err = env.run(t, NewConfigCmd(), []string{"set", "verbose", "2"})
	require.NoError(t, err)

	m := readGlobalConfig(t)
	assert.Equal(t, "https://api.example.com", m["base_url"])
	assert.EqualValues(t, 2, m["verbose"])

	_, err = env.run(t, NewConfigCmd(), []string{"unset", "verbose"})
	require.NoError(t, err)
	assert.NotContains(t, readGlobalConfig(t), "verbose")
}

func TestConfigRejectsUnknownKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewConfigCmd(), []string{"set", "colour", "blue"})
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeUsage, e.Code)
	assert.Contains(t, e.Message, "workspace_id")

	_, err = env.run(t, NewConfigCmd(), []string{"set", "base_url", "https://x", "--local"})
	require.Error(t, err)
}

func TestConfigShowReportsSources(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewConfigCmd(), []string{"show"})
	require.NoError(t, err)

	show := decode[map[string]map[string]string](t, res.Data)
	assert.Equal(t, gatewaytest.WorkspaceID, show["workspace_id"]["value"])
	assert.Equal(t, string(config.SourceDefault), show["workspace_id"]["source"])
	assert.Equal(t, config.GlobalConfigPath(), res.Context["path"])
}

func TestConfigProjectNeedsTerminal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewConfigCmd(), []string{"project"})
	require.Error(t, err)
	assert.Contains(t, output.AsError(err).Hint, "config set project_id")
}

func TestWorkspacesSwitchPersistsDefault(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewWorkspacesCmd(), []string{"switch", gatewaytest.WorkspaceID}, withoutWorkspace())
	require.NoError(t, err)
	assert.Equal(t, "Default workspace is now Acme", res.Summary)
	assert.Equal(t, gatewaytest.WorkspaceID, readGlobalConfig(t)["workspace_id"])
}
