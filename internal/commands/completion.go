package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// NewCompletionCmd creates the completion command.
func NewCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for bash, zsh, fish or powershell.

Bash:
  $ source <(taskhub completion bash)

Zsh:
  $ taskhub completion zsh > "${fpath[1]}/_taskhub"

Fish:
  $ taskhub completion fish | source

PowerShell:
  PS> taskhub completion powershell | Out-String | Invoke-Expression

Workspace and project IDs complete from the ones you used recently.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return fmt.Errorf("unknown shell: %s", args[0])
		},
	}
}

// CompleteRecent completes IDs of kind from the recents store. Completion
// runs without the app context, so the store is opened from config.
func CompleteRecent(kind string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		cfg, err := config.Load(config.FlagOverrides{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return recentCompletions(recents.NewStore(cfg.CacheDir), kind, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

func recentCompletions(store *recents.Store, kind, prefix string) []cobra.Completion {
	var out []cobra.Completion
	for _, item := range store.Get(kind, "") {
		if !strings.HasPrefix(item.ID, prefix) {
			continue
		}
		out = append(out, cobra.CompletionWithDesc(item.ID, item.Title))
	}
	return out
}
