package commands

import (
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

// commandCategories returns all command categories for the catalog.
func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Core Commands",
			Commands: []CommandInfo{
				{Name: "workspaces", Category: "core", Description: "Manage workspaces", Actions: []string{"list", "show", "create", "update", "delete", "switch"}},
				{Name: "projects", Category: "core", Description: "Manage projects", Actions: []string{"list", "show", "create", "update", "delete"}},
				{Name: "tasks", Category: "core", Description: "Manage tasks", Actions: []string{"list", "show", "create", "update", "delete", "move"}},
				{Name: "board", Category: "core", Description: "Show a project's kanban board"},
			},
		},
		{
			Name: "Collaboration",
			Commands: []CommandInfo{
				{Name: "members", Category: "collaboration", Description: "Manage workspace members", Actions: []string{"list", "update", "remove"}},
				{Name: "invite", Category: "collaboration", Description: "Manage workspace invite links", Actions: []string{"show", "generate", "reset", "join"}},
				{Name: "comments", Category: "collaboration", Description: "Manage task comments", Actions: []string{"list", "add", "delete"}},
				{Name: "activity", Category: "collaboration", Description: "Show an activity feed"},
				{Name: "docs", Category: "collaboration", Description: "Read and edit documentation", Actions: []string{"show", "edit", "save", "status", "discard"}},
			},
		},
		{
			Name: "Account & Billing",
			Commands: []CommandInfo{
				{Name: "auth", Category: "account", Description: "Sign in and out", Actions: []string{"login", "logout", "status", "token", "verify-email"}},
				{Name: "me", Category: "account", Description: "Show current user profile"},
				{Name: "account", Category: "account", Description: "Manage your account", Actions: []string{"password", "delete"}},
				{Name: "billing", Category: "account", Description: "Show and change your plan", Actions: []string{"status", "checkout", "verify"}},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "config", Category: "additional", Description: "Manage configuration", Actions: []string{"show", "init", "set", "unset", "project"}},
				{Name: "doctor", Category: "additional", Description: "Check CLI health and diagnose issues"},
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "completion", Category: "additional", Description: "Generate shell completions", Actions: []string{"bash", "zsh", "fish", "powershell"}},
				{Name: "help", Category: "additional", Description: "Show help"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
// Used by tests to verify catalog matches registered commands.
func CatalogCommandNames() []string {
	categories := commandCategories()
	// Count total commands for preallocation
	total := 0
	for _, cat := range categories {
		total += len(cat.Commands)
	}
	names := make([]string, 0, total)
	for _, cat := range categories {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all available commands",
		Long:    "List all available taskhub commands organized by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			return app.OK(commandCategories(),
				output.WithSummary("All available taskhub commands"),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "help",
						Cmd:         "taskhub --help",
						Description: "View help",
					},
				),
			)
		},
	}
}

// CatalogActions returns the catalog's actions for one command.
func CatalogActions(name string) []string {
	for _, cat := range commandCategories() {
		for _, cmd := range cat.Commands {
			if cmd.Name == name {
				return cmd.Actions
			}
		}
	}
	return nil
}
