// Package cli wires the root command, global flags and error reporting.
package cli

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/commands"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/hostutil"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
	"github.com/taskhub/taskhub-cli/internal/version"
)

// skipSetup lists commands that run without loading config or building
// the app.
var skipSetup = map[string]bool{
	"help":                          true,
	"version":                       true,
	"completion":                    true,
	cobra.ShellCompRequestCmd:       true,
	cobra.ShellCompNoDescRequestCmd: true,
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "taskhub",
		Short: "Command-line client for TaskHub",
		Long: `taskhub manages TaskHub workspaces, projects, tasks, and documentation
from the terminal.

Output is styled on a terminal and JSON when piped. Use --json, --md,
--quiet, --ids-only or --count to choose, and --jq to filter JSON.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipSetup[cmd.Name()] {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL:   config.NormalizeBaseURL(hostutil.Normalize(flags.Host)),
				Workspace: flags.Workspace,
				Project:   flags.Project,
				CacheDir:  flags.CacheDir,
			})
			if err != nil {
				return output.ErrUsage(err.Error())
			}
			if err := hostutil.RequireSecureURL(cfg.BaseURL); err != nil {
				return output.ErrUsageHint(err.Error(), "Use an https:// gateway, or a localhost address for development")
			}

			app := appctx.NewApp(cfg, appctx.WithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app := appctx.FromContext(cmd.Context()); app != nil {
				app.Close()
			}
		},
	}

	cmd.SetVersionTemplate(version.Full() + "\n")

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	pf := cmd.PersistentFlags()

	// Output format flags
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	pf.BoolVarP(&flags.MD, "md", "m", false, "Output as Markdown (portable)")
	pf.BoolVar(&flags.MD, "markdown", false, "Output as Markdown (portable)")
	pf.BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	pf.BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	pf.BoolVar(&flags.Count, "count", false, "Output only count")
	pf.BoolVar(&flags.Agent, "agent", false, "Agent mode (JSON + quiet)")
	pf.StringVar(&flags.JQ, "jq", "", "Filter JSON output with a jq expression")

	// Context flags
	pf.StringVarP(&flags.Workspace, "workspace", "w", "", "Workspace ID")
	pf.StringVarP(&flags.Project, "project", "p", "", "Project ID")
	pf.StringVar(&flags.Host, "host", "", "Gateway host (e.g. localhost:3000, api.example.com)")

	// Behavior flags
	pf.CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for operations, -vv for requests)")
	pf.BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	pf.StringVar(&flags.CacheDir, "cache-dir", "", "Cache directory")

	_ = cmd.RegisterFlagCompletionFunc("workspace", commands.CompleteRecent(recents.KindWorkspace))
	_ = cmd.RegisterFlagCompletionFunc("project", commands.CompleteRecent(recents.KindProject))

	return cmd
}

// AddCommands registers every subcommand on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		commands.NewAuthCmd(),
		commands.NewMeCmd(),
		commands.NewAccountCmd(),
		commands.NewWorkspacesCmd(),
		commands.NewMembersCmd(),
		commands.NewInviteCmd(),
		commands.NewProjectsCmd(),
		commands.NewTasksCmd(),
		commands.NewBoardCmd(),
		commands.NewCommentsCmd(),
		commands.NewActivityCmd(),
		commands.NewDocsCmd(),
		commands.NewBillingCmd(),
		commands.NewConfigCmd(),
		commands.NewDoctorCmd(),
		commands.NewCommandsCmd(),
		commands.NewCompletionCmd(),
		commands.NewVersionCmd(),
	)
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	cmd := NewRootCmd()
	AddCommands(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return
	}
	err = transformCobraError(err)
	apiErr := output.AsError(err)

	// The app prints the error when it exists so --stats still applies.
	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		app.Close()
		stop()
		os.Exit(apiErr.ExitCode())
	}

	// Setup failed before the app existed.
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd.PersistentFlags()),
		Writer: os.Stdout,
	})
	_ = writer.Err(err)

	stop()
	os.Exit(apiErr.ExitCode())
}

// fallbackFormat picks the error format from the raw flags when no app
// was built.
func fallbackFormat(pf *pflag.FlagSet) output.Format {
	is := func(name string) bool {
		v, _ := pf.GetBool(name)
		return v
	}
	switch {
	case is("agent") || is("quiet"):
		return output.FormatQuiet
	case is("ids-only"):
		return output.FormatIDs
	case is("count"):
		return output.FormatCount
	case is("styled"):
		return output.FormatStyled
	case is("md"):
		return output.FormatMarkdown
	case is("json"):
		return output.FormatJSON
	}
	if jq, _ := pf.GetString("jq"); jq != "" {
		return output.FormatJSON
	}
	return output.FormatAuto
}

var shorthandRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's parse errors into usage errors with
// consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}
	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if m := shorthandRe.FindStringSubmatch(msg); len(m) > 1 {
			return output.ErrUsage("Unknown option: " + m[1])
		}
	}
	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run: taskhub commands")
	}
	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}
	if strings.Contains(msg, "accepts at most") {
		return output.ErrUsage("Too many arguments (" + msg + ")")
	}
	if strings.Contains(msg, "arg(s), received") {
		return output.ErrUsage("Wrong number of arguments (" + msg + ")")
	}
	if strings.HasPrefix(msg, "if any flags in the group") {
		return output.ErrUsage(msg)
	}
	return err
}
