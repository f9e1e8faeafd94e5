package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// isolate points every config location into a temp tree.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	for _, k := range []string{
		"TASKHUB_BASE_URL", "TASKHUB_PAYMENT_KEY_ID", "TASKHUB_WORKSPACE_ID",
		"TASKHUB_PROJECT_ID", "TASKHUB_CACHE_DIR", "TASKHUB_FORMAT",
		"TASKHUB_HINTS", "TASKHUB_STATS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Chdir(home)
	return home
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	cfg := Default()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "/tmp/xdg-cache/taskhub", cfg.CacheDir)
	assert.NotNil(t, cfg.Sources)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{
		"base_url":       "http://gateway.test",
		"payment_key_id": "rzp_test_123",
		"workspace_id":   "w1",
		"project_id":     "p1",
		"cache_dir":      "/tmp/cache",
		"format":         "json",
		"stats":          true,
		"verbose":        2,
	})

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "http://gateway.test", cfg.BaseURL)
	assert.Equal(t, "rzp_test_123", cfg.PaymentKeyID)
	assert.Equal(t, "w1", cfg.WorkspaceID)
	assert.Equal(t, "p1", cfg.ProjectID)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "json", cfg.Format)
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 2, *cfg.Verbose)
	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, "global", cfg.Sources["workspace_id"])
}

func TestLoadFromFile_InvalidVerboseIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{"verbose": 1.5})

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)
	assert.Nil(t, cfg.Verbose)
}

func TestLoadFromFile_SkipsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0o644))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadFromFile_UntrustedAuthorityKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{
		"base_url":     "http://evil.test",
		"workspace_id": "w-local",
	})

	for _, src := range []Source{SourceRepo, SourceLocal} {
		cfg := Default()
		loadFromFile(cfg, path, src)
		assert.Equal(t, DefaultBaseURL, cfg.BaseURL, "base_url must not come from %s config", src)
		assert.Equal(t, "w-local", cfg.WorkspaceID)
	}
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TASKHUB_BASE_URL", "http://env.test")
	t.Setenv("TASKHUB_PAYMENT_KEY_ID", "rzp_env")
	t.Setenv("TASKHUB_WORKSPACE_ID", "w-env")
	t.Setenv("TASKHUB_STATS", "1")
	t.Setenv("TASKHUB_HINTS", "maybe")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "http://env.test", cfg.BaseURL)
	assert.Equal(t, "rzp_env", cfg.PaymentKeyID)
	assert.Equal(t, "w-env", cfg.WorkspaceID)
	assert.Equal(t, "env", cfg.Sources["workspace_id"])
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	assert.Nil(t, cfg.Hints, "unrecognized booleans are ignored")
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	writeJSON(t, filepath.Join(home, ".config", "taskhub", "config.json"), map[string]any{
		"workspace_id": "w-global",
		"project_id":   "p-global",
		"format":       "markdown",
	})
	t.Setenv("TASKHUB_PROJECT_ID", "p-env")

	cfg, err := Load(FlagOverrides{Format: "json"})
	require.NoError(t, err)

	assert.Equal(t, "w-global", cfg.WorkspaceID)
	assert.Equal(t, "global", cfg.Sources["workspace_id"])
	assert.Equal(t, "p-env", cfg.ProjectID)
	assert.Equal(t, "env", cfg.Sources["project_id"])
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "flag", cfg.Sources["format"])
}

func TestLoad_LocalConfig(t *testing.T) {
	home := isolate(t)
	writeJSON(t, filepath.Join(home, ".taskhub", "config.json"), map[string]any{
		"project_id": "p-local",
		"base_url":   "http://evil.test",
	})

	cfg, err := Load(FlagOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "p-local", cfg.ProjectID)
	assert.Equal(t, "local", cfg.Sources["project_id"])
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	ApplyOverrides(cfg, FlagOverrides{BaseURL: "http://flag.test", Workspace: "w9", Project: "p9", CacheDir: "/c"})

	assert.Equal(t, "http://flag.test", cfg.BaseURL)
	assert.Equal(t, "w9", cfg.WorkspaceID)
	assert.Equal(t, "p9", cfg.ProjectID)
	assert.Equal(t, "/c", cfg.CacheDir)
	assert.Equal(t, "flag", cfg.Sources["project_id"])
}

func TestSetAndUnsetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, SetValue(path, "workspace_id", "w1"))
	require.NoError(t, SetValue(path, "stats", "true"))
	require.NoError(t, SetValue(path, "verbose", "1"))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)
	assert.Equal(t, "w1", cfg.WorkspaceID)
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 1, *cfg.Verbose)

	require.NoError(t, UnsetValue(path, "workspace_id"))
	cfg = Default()
	loadFromFile(cfg, path, SourceGlobal)
	assert.Empty(t, cfg.WorkspaceID)
}

func TestSetValue_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.Error(t, SetValue(path, "nope", "x"))
	assert.Error(t, SetValue(path, "stats", "sometimes"))
	assert.Error(t, SetValue(path, "verbose", "3"))
	assert.Error(t, SetValue(path, "format", "xml"))
	assert.Error(t, UnsetValue(path, "nope"))
}

func TestSettableKeys_Sorted(t *testing.T) {
	keys := SettableKeys()
	assert.Contains(t, keys, "base_url")
	assert.IsNonDecreasing(t, keys)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://x.test", NormalizeBaseURL("http://x.test/"))
	assert.Equal(t, "http://x.test", NormalizeBaseURL("http://x.test"))
}

func TestIsInsideDir(t *testing.T) {
	assert.True(t, isInsideDir("/home/u/proj", "/home/u"))
	assert.True(t, isInsideDir("/home/u", "/home/u"))
	assert.False(t, isInsideDir("/home/user2", "/home/u"))
}
