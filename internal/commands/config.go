package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// localConfigPath is the per-directory config file written by --local.
var localConfigPath = filepath.Join(".taskhub", "config.json")

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage taskhub configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > local > repo > global > system > defaults

Config locations:
  - System: /etc/taskhub/config.json
  - Global: ~/.config/taskhub/config.json
  - Repo:   <git-root>/.taskhub/config.json
  - Local:  .taskhub/config.json

base_url is only honored from system, global, env and flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigProjectCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app := appctx.FromContext(cmd.Context())
	cfg := app.Config

	keys := []struct {
		key     string
		value   string
		include bool
	}{
		{"base_url", cfg.BaseURL, cfg.BaseURL != ""},
		{"payment_key_id", cfg.PaymentKeyID, cfg.PaymentKeyID != ""},
		{"workspace_id", cfg.WorkspaceID, cfg.WorkspaceID != ""},
		{"project_id", cfg.ProjectID, cfg.ProjectID != ""},
		{"cache_dir", cfg.CacheDir, cfg.CacheDir != ""},
		{"format", cfg.Format, cfg.Format != ""},
		{"hints", fmt.Sprintf("%t", cfg.Hints != nil && *cfg.Hints), cfg.Hints != nil},
		{"stats", fmt.Sprintf("%t", cfg.Stats != nil && *cfg.Stats), cfg.Stats != nil},
		{"verbose", fmt.Sprintf("%d", derefInt(cfg.Verbose)), cfg.Verbose != nil},
	}

	configData := make(map[string]any)
	for _, k := range keys {
		if !k.include {
			continue
		}
		source := cfg.Sources[k.key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		configData[k.key] = map[string]string{
			"value":  k.value,
			"source": source,
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithContext("path", config.GlobalConfigPath()),
		output.WithBreadcrumbs(
			output.Breadcrumb{
				Action:      "set",
				Cmd:         "taskhub config set <key> <value>",
				Description: "Set config value",
			},
			output.Breadcrumb{
				Action:      "workspace",
				Cmd:         "taskhub workspaces switch",
				Description: "Select default workspace",
			},
		),
	)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize local config file",
		Long:  "Create a local .taskhub/config.json file in the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if _, err := os.Stat(localConfigPath); err == nil {
				return app.OK(map[string]any{
					"exists": true,
					"path":   localConfigPath,
				}, output.WithSummary(fmt.Sprintf("Config file already exists: %s", localConfigPath)))
			}

			if err := os.MkdirAll(filepath.Dir(localConfigPath), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(localConfigPath, []byte("{}\n"), 0600); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			return app.OK(map[string]any{
				"created": true,
				"path":    localConfigPath,
			},
				output.WithSummary(fmt.Sprintf("Created: %s", localConfigPath)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "set",
					Cmd:         "taskhub config set project_id <id> --local",
					Description: "Pin a project for this directory",
				}),
			)
		},
	}
}

// configTarget picks the file a set/unset writes to.
func configTarget(local bool) string {
	if local {
		return localConfigPath
	}
	return config.GlobalConfigPath()
}

func invalidKey(key string) error {
	return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s",
		key, strings.Join(config.SettableKeys(), ", ")))
}

func isSettable(key string) bool {
	for _, k := range config.SettableKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func newConfigSetCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the global (default) or local config file.

Valid keys: ` + strings.Join(config.SettableKeys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !isSettable(key) {
				return invalidKey(key)
			}
			if local && key == "base_url" {
				return output.ErrUsageHint("base_url cannot be set locally", "Set it globally or with TASKHUB_BASE_URL")
			}
			if key == "base_url" {
				value = config.NormalizeBaseURL(value)
			}

			path := configTarget(local)
			if err := config.SetValue(path, key, value); err != nil {
				return output.ErrUsage(err.Error())
			}

			return app.OK(map[string]string{
				"key":   key,
				"value": value,
				"path":  path,
			}, output.WithSummary(fmt.Sprintf("Set %s = %s", key, value)))
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Write to .taskhub/config.json in this directory")

	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key := args[0]

			if !isSettable(key) {
				return invalidKey(key)
			}
			path := configTarget(local)
			if err := config.UnsetValue(path, key); err != nil {
				return output.ErrUsage(err.Error())
			}

			return app.OK(map[string]string{
				"key":  key,
				"path": path,
			}, output.WithSummary("Unset "+key))
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Edit .taskhub/config.json in this directory")

	return cmd
}

// unsetGlobal removes key from the global config file.
func unsetGlobal(key string) error {
	return config.UnsetValue(config.GlobalConfigPath(), key)
}

func newConfigProjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Pick the default project",
		Long:  "Choose a project from the current workspace and save it as project_id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			r := app.Resolver()
			if !r.IsInteractive() {
				return output.ErrUsageHint("Project selection needs a terminal", "Use: taskhub config set project_id <id>")
			}

			ws, err := workspaceID(cmd, app)
			if err != nil {
				return err
			}
			v, err := r.Project(cmd.Context(), ws)
			if err != nil {
				return err
			}
			if err := r.Persist("project_id", v.ID); err != nil {
				return err
			}

			return app.OK(map[string]string{"project_id": v.ID, "name": v.Title},
				output.WithSummary("Default project is now "+orID(v.Title, v.ID)))
		},
	}
}
