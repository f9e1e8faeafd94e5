// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/auth"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/docs"
	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/resilience"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
	"github.com/taskhub/taskhub-cli/internal/tui/resolve"
	"github.com/taskhub/taskhub-cli/internal/version"
)

// DebugEnv raises the verbosity level: "1", "2" or "true" (same as 2).
const DebugEnv = "TASKHUB_DEBUG"

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	Client *api.Client
	Hub    *data.Hub
	Output *output.Writer

	// Gate is nil when the client was injected.
	Gate *resilience.Gate

	// Local state
	Recents *recents.Store
	Shadows *docs.ShadowStore

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer

	resolveOpts []resolve.Option
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	MD      bool // Literal Markdown syntax output
	Styled  bool // Force ANSI styled output (even when piped)
	IDsOnly bool
	Count   bool
	Agent   bool
	JQ      string

	// Context flags
	Workspace string
	Project   string
	Host      string

	// Behavior flags
	Verbose  int // 0=off, 1=operations, 2=operations+requests (stacks with -v -v or -vv)
	Stats    bool
	CacheDir string
}

// Option customizes an App.
type Option func(*App)

// WithClient replaces the gateway client, typically with one aimed at a stub.
func WithClient(c *api.Client) Option {
	return func(a *App) { a.Client = c }
}

// WithAuth replaces the auth manager.
func WithAuth(m *auth.Manager) Option {
	return func(a *App) { a.Auth = m }
}

// WithWriters redirects command output.
func WithWriters(stdout, stderr io.Writer) Option {
	return func(a *App) {
		if stdout != nil {
			a.Stdout = stdout
		}
		if stderr != nil {
			a.Stderr = stderr
		}
	}
}

// WithResolverOptions adds options to every resolver the app builds.
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(a *App) { a.resolveOpts = append(a.resolveOpts, opts...) }
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Auth == nil {
		a.Auth = auth.NewManager(cfg)
	}

	// Collector always runs to gather stats; hooks control output verbosity.
	// Level 0 initially; ApplyFlags sets the actual level from -v flags.
	a.Collector = observability.NewSessionCollector()
	a.Hooks = observability.NewCLIHooks(0, a.Collector, observability.NewTraceWriterTo(a.Stderr))

	if a.Client == nil {
		a.Gate = resilience.NewGate(resilience.NewStore(resilience.DefaultDir(cfg.CacheDir)), resilience.DefaultConfig())
		a.Client = api.NewClient(cfg.BaseURL, a.Auth, api.WithHooks(a.Hooks), api.WithGate(a.Gate))
	}
	a.Hub = data.NewHub(a.Client, data.WithHooks(a.Hooks))
	a.Recents = recents.NewStore(cfg.CacheDir)
	a.Shadows = docs.NewShadowStore(docs.DefaultDir(cfg.CacheDir))

	a.Output = output.New(output.Options{
		Format: formatFromConfig(cfg.Format),
		Writer: a.Stdout,
	})
	return a
}

func formatFromConfig(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	case "styled":
		return output.FormatStyled
	case "quiet":
		return output.FormatQuiet
	}
	return output.FormatAuto
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Specific modes first.
	format := output.Format(-1)
	switch {
	case a.Flags.Agent:
		// Agent mode = quiet JSON (data only, no envelope)
		format = output.FormatQuiet
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.Styled:
		format = output.FormatStyled
	case a.Flags.MD:
		format = output.FormatMarkdown
	}
	if format >= 0 || a.Flags.JQ != "" {
		if format < 0 {
			format = output.FormatJSON
		}
		a.Output = output.New(output.Options{
			Format: format,
			Writer: a.Stdout,
			JQ:     a.Flags.JQ,
		})
	}

	if a.Config != nil && a.Config.Stats != nil && *a.Config.Stats {
		a.Flags.Stats = true
	}

	verboseLevel := a.Flags.Verbose
	if a.Config != nil && a.Config.Verbose != nil && *a.Config.Verbose > verboseLevel {
		verboseLevel = *a.Config.Verbose
	}
	if debugEnv := os.Getenv(DebugEnv); debugEnv != "" {
		if level, err := strconv.Atoi(debugEnv); err == nil {
			verboseLevel = max(verboseLevel, level)
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}
	a.Hooks.SetLevel(verboseLevel)

	if verboseLevel > 0 {
		logger := slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		a.Client.SetLogger(logger.With("client", version.UserAgent()))
	}
}

// Resolver returns a workspace/project resolver bound to the app's flags.
func (a *App) Resolver() *resolve.Resolver {
	opts := append([]resolve.Option{
		resolve.WithFlags(resolve.Flags{
			Workspace: a.Flags.Workspace,
			Project:   a.Flags.Project,
			Agent:     a.Flags.Agent,
			JSON:      a.Flags.JSON || a.Flags.JQ != "",
			Quiet:     a.Flags.Quiet,
			IDsOnly:   a.Flags.IDsOnly,
			Count:     a.Flags.Count,
		}),
		resolve.WithRecents(a.Recents),
	}, a.resolveOpts...)
	return resolve.New(a.Hub, a.Config, opts...)
}

// Close releases the hub's realms.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
}

// OK outputs a success response, automatically including stats if --stats flag is set.
// Cache telemetry goes under meta.cache next to the session stats.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		stats := a.Collector.Summary()
		opts = append(opts, output.WithStats(&stats))
		if a.Hub != nil {
			opts = append(opts, output.WithMeta("cache", a.Hub.Metrics().Summary().ToMap()))
		}
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Machine-consumable modes get no trailing stats line.
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStats(&stats)
	}
	return nil
}

// isMachineOutput reports whether output is meant for programs, from flags
// or config.
func (a *App) isMachineOutput() bool {
	if a.Flags.Agent || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStats outputs a compact stats line to stderr.
func (a *App) printStats(stats *observability.SessionMetrics) {
	if stats == nil {
		return
	}

	parts := stats.FormatParts()
	if a.Hub != nil {
		if c := a.Hub.Metrics().Summary(); c.Fetches > 0 {
			parts = append(parts, fmt.Sprintf("%d cache fetches, %d failed", c.Fetches, c.Errors))
		}
	}
	fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	return a.Resolver().IsInteractive()
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
