// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultBaseURL is the hosted TaskHub gateway.
const DefaultBaseURL = "https://api.taskhub.app"

// Config holds the resolved configuration.
type Config struct {
	// Gateway settings
	BaseURL      string `json:"base_url"`
	PaymentKeyID string `json:"payment_key_id"`

	// Scope defaults
	WorkspaceID string `json:"workspace_id"`
	ProjectID   string `json:"project_id"`

	// Local storage for documentation shadows
	CacheDir string `json:"cache_dir"`

	// Output settings
	Format string `json:"format"`

	// Behavior preferences (persisted via config set, overridable by flags)
	Hints   *bool `json:"hints,omitempty"`
	Stats   *bool `json:"stats,omitempty"`
	Verbose *int  `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceRepo    Source = "repo"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL   string
	Workspace string
	Project   string
	CacheDir  string
	Format    string
}

// envLayer mirrors the TASKHUB_* variables. Pointer fields stay nil when unset.
type envLayer struct {
	BaseURL      *string `env:"TASKHUB_BASE_URL"`
	PaymentKeyID *string `env:"TASKHUB_PAYMENT_KEY_ID"`
	WorkspaceID  *string `env:"TASKHUB_WORKSPACE_ID"`
	ProjectID    *string `env:"TASKHUB_PROJECT_ID"`
	CacheDir     *string `env:"TASKHUB_CACHE_DIR"`
	Format       *string `env:"TASKHUB_FORMAT"`
	Hints        *string `env:"TASKHUB_HINTS"`
	Stats        *string `env:"TASKHUB_STATS"`
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}

	return &Config{
		BaseURL:  DefaultBaseURL,
		CacheDir: filepath.Join(cacheDir, "taskhub"),
		Format:   "auto",
		Sources:  make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > repo > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, GlobalConfigPath(), SourceGlobal)

	repoPath := repoConfigPath()
	if repoPath != "" {
		loadFromFile(cfg, repoPath, SourceRepo)
	}

	// Closer directories override parents.
	for _, path := range localConfigPaths(repoPath) {
		loadFromFile(cfg, path, SourceLocal)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// base_url decides where the bearer token is sent. A config checked into
	// a cloned repo must not be able to redirect it.
	untrusted := source == SourceLocal || source == SourceRepo

	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring base_url %q from %s config at %s (authority keys are not trusted from local/repo config)\n", v, source, path)
		} else {
			cfg.BaseURL = v
			cfg.Sources["base_url"] = string(source)
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}
	setString("payment_key_id", &cfg.PaymentKeyID)
	setString("workspace_id", &cfg.WorkspaceID)
	setString("project_id", &cfg.ProjectID)
	setString("cache_dir", &cfg.CacheDir)
	setString("format", &cfg.Format)

	if v, ok := fileCfg["hints"].(bool); ok {
		cfg.Hints = &v
		cfg.Sources["hints"] = string(source)
	}
	if v, ok := fileCfg["stats"].(bool); ok {
		cfg.Stats = &v
		cfg.Sources["stats"] = string(source)
	}
	if fv, ok := fileCfg["verbose"].(float64); ok {
		iv := int(fv)
		if iv >= 0 && iv <= 2 && fv == float64(iv) {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(source)
		}
	}
}

// LoadFromEnv loads configuration from TASKHUB_* environment variables.
func LoadFromEnv(cfg *Config) error {
	var e envLayer
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString := func(v *string, key string, dst *string) {
		if v != nil && *v != "" {
			*dst = *v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	setString(e.BaseURL, "base_url", &cfg.BaseURL)
	setString(e.PaymentKeyID, "payment_key_id", &cfg.PaymentKeyID)
	setString(e.WorkspaceID, "workspace_id", &cfg.WorkspaceID)
	setString(e.ProjectID, "project_id", &cfg.ProjectID)
	setString(e.CacheDir, "cache_dir", &cfg.CacheDir)
	setString(e.Format, "format", &cfg.Format)

	if e.Hints != nil {
		if b, ok := parseEnvBool(*e.Hints); ok {
			cfg.Hints = &b
			cfg.Sources["hints"] = string(SourceEnv)
		}
	}
	if e.Stats != nil {
		if b, ok := parseEnvBool(*e.Stats); ok {
			cfg.Stats = &b
			cfg.Sources["stats"] = string(SourceEnv)
		}
	}
	return nil
}

// parseEnvBool parses a boolean environment variable strictly.
// Unrecognized values are ignored to preserve three-state pointer semantics.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Workspace != "" {
		cfg.WorkspaceID = o.Workspace
		cfg.Sources["workspace_id"] = string(SourceFlag)
	}
	if o.Project != "" {
		cfg.ProjectID = o.Project
		cfg.Sources["project_id"] = string(SourceFlag)
	}
	if o.CacheDir != "" {
		cfg.CacheDir = o.CacheDir
		cfg.Sources["cache_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// Path helpers

func systemConfigPath() string {
	return "/etc/taskhub/config.json"
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "taskhub")
}

// GlobalConfigPath returns the path of the user's config file.
func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// LayerPaths returns the repo config path and the local config paths Load
// reads from the working directory. Either may be empty.
func LayerPaths() (repo string, local []string) {
	repo = repoConfigPath()
	return repo, localConfigPaths(repo)
}

func repoConfigPath() string {
	// Walk up to the enclosing .git, bounded by $HOME. Outside $HOME no repo
	// config is trusted.
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	dir = resolved
	home, _ := os.UserHomeDir()
	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		home = resolved
	}

	if home != "" && !isInsideDir(dir, home) {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			cfgPath := filepath.Join(dir, ".taskhub", "config.json")
			if _, err := os.Stat(cfgPath); err == nil {
				return cfgPath
			}
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			return ""
		}
		dir = parent
	}
}

// isInsideDir reports whether child is the same as or a subdirectory of parent.
func isInsideDir(child, parent string) bool {
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}

// localConfigPaths returns .taskhub/config.json paths from the trust boundary
// down to the working directory, excluding the repo config.
//
// Trust boundary:
//   - Inside a git repo: only paths at or below the repo root
//   - Outside a git repo: only the current working directory
func localConfigPaths(repoConfigPath string) []string {
	dir, err := os.Getwd()
	if err != nil {
		return nil
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	dir = resolved

	boundary := dir
	if repoConfigPath != "" {
		boundary = filepath.Dir(filepath.Dir(repoConfigPath))
	}
	if resolved, err := filepath.EvalSymlinks(boundary); err == nil {
		boundary = resolved
	}

	var paths []string
	for {
		cfgPath := filepath.Join(dir, ".taskhub", "config.json")
		if _, err := os.Stat(cfgPath); err == nil && cfgPath != repoConfigPath {
			paths = append(paths, cfgPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir || dir == boundary {
			break
		}
		dir = parent
	}

	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
