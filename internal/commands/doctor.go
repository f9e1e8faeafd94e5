package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/auth"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/resilience"
	"github.com/taskhub/taskhub-cli/internal/version"
)

// Check is one diagnostic result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "fail", "skip", "warn"
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// DoctorResult holds every check and the tallies.
type DoctorResult struct {
	Checks  []Check `json:"checks"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Warned  int     `json:"warned"`
	Skipped int     `json:"skipped"`
}

// Summary returns a one-line account of the results.
func (r *DoctorResult) Summary() string {
	if r.Failed == 0 && r.Warned == 0 && r.Passed > 0 {
		if r.Skipped > 0 {
			return fmt.Sprintf("All %d checks passed, %d skipped", r.Passed, r.Skipped)
		}
		return fmt.Sprintf("All %d checks passed", r.Passed)
	}
	parts := []string{}
	if r.Passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", r.Passed))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if r.Warned > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", r.Warned, pluralize(r.Warned, "warning", "warnings")))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	}
	return strings.Join(parts, ", ")
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	var resetGateway bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check CLI health and diagnose issues",
		Long: `Run diagnostic checks on configuration, credentials and gateway access.

Examples:
  taskhub doctor
  taskhub doctor --json
  taskhub doctor -v                # Include build and effective config details
  taskhub doctor --reset-gateway   # Close a tripped circuit breaker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			gate := doctorGate(app)
			if resetGateway {
				if err := gate.Reset(); err != nil {
					return fmt.Errorf("reset gateway state: %w", err)
				}
			}

			checks := runDoctorChecks(cmd.Context(), app, gate, app.Flags.Verbose > 0)
			result := summarizeChecks(checks)

			if app.Output.EffectiveFormat() == output.FormatStyled {
				renderDoctorStyled(cmd.OutOrStdout(), result)
				return nil
			}

			opts := []output.ResponseOption{output.WithSummary(result.Summary())}
			if crumbs := buildDoctorBreadcrumbs(checks); len(crumbs) > 0 {
				opts = append(opts, output.WithBreadcrumbs(crumbs...))
			}
			return app.OK(result, opts...)
		},
	}

	cmd.Flags().BoolVar(&resetGateway, "reset-gateway", false, "Clear the circuit breaker and Retry-After window first")
	return cmd
}

// doctorGate returns the app's gate, or one over the same state file when
// the client was injected.
func doctorGate(app *appctx.App) *resilience.Gate {
	if app.Gate != nil {
		return app.Gate
	}
	store := resilience.NewStore(resilience.DefaultDir(app.Config.CacheDir))
	return resilience.NewGate(store, resilience.DefaultConfig())
}

func runDoctorChecks(ctx context.Context, app *appctx.App, gate *resilience.Gate, verbose bool) []Check {
	checks := []Check{checkVersion(verbose)}
	checks = append(checks, checkConfigFiles(app, verbose)...)

	creds := checkCredentials(app, verbose)
	checks = append(checks, creds)

	gw := checkGateway(gate)
	checks = append(checks, gw)

	switch {
	case creds.Status == "fail":
		checks = append(checks,
			Check{Name: "Authentication", Status: "skip", Message: "No credentials"},
			Check{Name: "Workspace Access", Status: "skip", Message: "Not authenticated"})
	case gw.Status == "fail":
		checks = append(checks,
			Check{Name: "Authentication", Status: "skip", Message: "Gateway unavailable"},
			Check{Name: "Workspace Access", Status: "skip", Message: "Gateway unavailable"})
	default:
		authCheck := checkAuthentication(ctx, app)
		checks = append(checks, authCheck)
		if authCheck.Status != "fail" {
			checks = append(checks, checkWorkspaceAccess(ctx, app))
		} else {
			checks = append(checks, Check{Name: "Workspace Access", Status: "skip", Message: "Not authenticated"})
		}
	}

	checks = append(checks, checkCacheHealth(app, verbose))
	return checks
}

func checkVersion(verbose bool) Check {
	msg := version.Version
	if verbose {
		msg = fmt.Sprintf("%s (commit %s, %s, %s/%s)", version.Version, version.Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
	return Check{Name: "Version", Status: "pass", Message: msg}
}

func checkConfigFiles(app *appctx.App, verbose bool) []Check {
	checks := []Check{}

	globalPath := config.GlobalConfigPath()
	if _, err := os.Stat(globalPath); err == nil {
		checks = append(checks, validateConfigFile(globalPath, "Global Config", verbose))
	} else {
		checks = append(checks, Check{
			Name:    "Global Config",
			Status:  "warn",
			Message: "Not found (using defaults)",
			Hint:    "Run: taskhub config init",
		})
	}

	repoPath, localPaths := config.LayerPaths()
	if repoPath != "" {
		checks = append(checks, validateConfigFile(repoPath, "Repo Config", verbose))
	} else if verbose {
		checks = append(checks, Check{
			Name:    "Repo Config",
			Status:  "skip",
			Message: "Not found",
			Hint:    "Create .taskhub/config.json at the repo root for team settings",
		})
	}
	for _, p := range localPaths {
		if _, err := os.Stat(p); err == nil {
			checks = append(checks, validateConfigFile(p, "Local Config", verbose))
		}
	}

	if verbose && app.Config != nil {
		var details []string
		for _, kv := range []struct{ key, value string }{
			{"base_url", app.Config.BaseURL},
			{"workspace_id", app.Config.WorkspaceID},
			{"project_id", app.Config.ProjectID},
		} {
			if kv.value == "" {
				continue
			}
			src := app.Config.Sources[kv.key]
			if src == "" {
				src = string(config.SourceDefault)
			}
			details = append(details, fmt.Sprintf("%s=%s [%s]", kv.key, kv.value, src))
		}
		if len(details) > 0 {
			checks = append(checks, Check{Name: "Effective Config", Status: "pass", Message: strings.Join(details, ", ")})
		}
	}
	return checks
}

// validateConfigFile checks that a config file parses as a JSON object.
func validateConfigFile(path, name string, verbose bool) Check {
	data, err := os.ReadFile(path) //nolint:gosec // G304: config layer path
	if err != nil {
		return Check{
			Name:    name,
			Status:  "fail",
			Message: fmt.Sprintf("Cannot read: %s", path),
			Hint:    fmt.Sprintf("Check file permissions: %v", err),
		}
	}

	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Check{
			Name:    name,
			Status:  "fail",
			Message: fmt.Sprintf("Invalid JSON: %s", path),
			Hint:    fmt.Sprintf("JSON error: %v", err),
		}
	}

	msg := path
	if verbose {
		msg = fmt.Sprintf("%s (%d keys)", path, len(cfg))
	}
	return Check{Name: name, Status: "pass", Message: msg}
}

func checkCredentials(app *appctx.App, verbose bool) Check {
	check := Check{Name: "Credentials"}

	if os.Getenv(auth.TokenEnv) != "" {
		check.Status = "pass"
		check.Message = "Using " + auth.TokenEnv + " environment variable"
		return check
	}
	if !app.Auth.IsAuthenticated() {
		check.Status = "fail"
		check.Message = "Not signed in"
		check.Hint = "Run: taskhub auth login"
		return check
	}

	check.Status = "pass"
	check.Message = "Stored credentials"
	if creds := app.Auth.Credentials(); creds != nil && creds.Email != "" {
		check.Message = "Stored credentials for " + creds.Email
		if verbose && !creds.SavedAt.IsZero() {
			check.Message += fmt.Sprintf(" (saved %s)", creds.SavedAt.Format("2006-01-02"))
		}
	}
	return check
}

func checkGateway(gate *resilience.Gate) Check {
	check := Check{Name: "Gateway"}

	state, err := gate.Breaker().State()
	if err != nil {
		check.Status = "warn"
		check.Message = "Cannot read gateway state"
		check.Hint = err.Error()
		return check
	}

	switch state {
	case resilience.CircuitOpen:
		check.Status = "fail"
		check.Message = fmt.Sprintf("Circuit open after repeated failures, retrying in %s", gate.Breaker().RetryIn().Round(time.Second))
		check.Hint = "Run: taskhub doctor --reset-gateway"
	case resilience.CircuitHalfOpen:
		check.Status = "warn"
		check.Message = "Recovering from recent failures"
	default:
		check.Status = "pass"
		check.Message = "Healthy"
	}

	if wait := gate.BlockedFor(); wait > 0 && check.Status == "pass" {
		check.Status = "warn"
		check.Message = fmt.Sprintf("Rate limited for %s", wait.Round(time.Second))
	}
	return check
}

func checkAuthentication(ctx context.Context, app *appctx.App) Check {
	check := Check{Name: "Authentication"}

	me, err := app.Hub.LoadMe(ctx)
	if err != nil {
		e := output.AsError(err)
		check.Status = "fail"
		check.Message = e.Message
		check.Hint = e.Hint
		return check
	}

	check.Status = "pass"
	check.Message = fmt.Sprintf("Signed in as %s <%s>", me.Name, me.Email)
	if !me.EmailVerified {
		check.Status = "warn"
		check.Message += " (email not verified)"
		check.Hint = "Run: taskhub auth verify-email <token>"
	}
	return check
}

func checkWorkspaceAccess(ctx context.Context, app *appctx.App) Check {
	check := Check{Name: "Workspace Access"}

	id := app.Flags.Workspace
	if id == "" {
		id = app.Config.WorkspaceID
	}
	if id == "" {
		check.Status = "skip"
		check.Message = "No default workspace"
		check.Hint = "Run: taskhub workspaces switch <id>"
		return check
	}

	ws, err := app.Hub.LoadWorkspace(ctx, id)
	if err != nil {
		e := output.AsError(err)
		check.Status = "fail"
		check.Message = fmt.Sprintf("%s: %s", id, e.Message)
		check.Hint = "Run: taskhub workspaces list"
		return check
	}
	check.Status = "pass"
	check.Message = fmt.Sprintf("%s (%s)", ws.Name, ws.ID)
	return check
}

func checkCacheHealth(app *appctx.App, verbose bool) Check {
	check := Check{Name: "Cache"}

	cacheDir := app.Config.CacheDir
	if cacheDir == "" {
		check.Status = "warn"
		check.Message = "Cache directory not configured"
		return check
	}

	info, err := os.Stat(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			check.Status = "pass"
			check.Message = fmt.Sprintf("%s (will be created on first use)", cacheDir)
			return check
		}
		check.Status = "warn"
		check.Message = fmt.Sprintf("Cannot access: %s", cacheDir)
		check.Hint = fmt.Sprintf("Error: %v", err)
		return check
	}
	if !info.IsDir() {
		check.Status = "fail"
		check.Message = fmt.Sprintf("%s exists but is not a directory", cacheDir)
		return check
	}

	var totalSize int64
	var entries int
	_ = filepath.WalkDir(cacheDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort count
		}
		if !d.IsDir() {
			if fi, err := d.Info(); err == nil {
				totalSize += fi.Size()
			}
			entries++
		}
		return nil
	})

	check.Status = "pass"
	check.Message = cacheDir
	if verbose || entries > 0 {
		check.Message = fmt.Sprintf("%s (%.1f MB, %d entries)", cacheDir, float64(totalSize)/(1024*1024), entries)
	}

	if shadows, err := app.Shadows.List(); err == nil {
		dirty := 0
		for _, sh := range shadows {
			if sh.Dirty {
				dirty++
			}
		}
		if dirty > 0 {
			check.Status = "warn"
			check.Message += fmt.Sprintf(", %d unsaved %s", dirty, pluralize(dirty, "document", "documents"))
			check.Hint = "Run: taskhub docs status"
		}
	}
	return check
}

func summarizeChecks(checks []Check) *DoctorResult {
	result := &DoctorResult{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case "pass":
			result.Passed++
		case "fail":
			result.Failed++
		case "warn":
			result.Warned++
		case "skip":
			result.Skipped++
		}
	}
	return result
}

// buildDoctorBreadcrumbs suggests a next step for each failed check.
func buildDoctorBreadcrumbs(checks []Check) []output.Breadcrumb {
	var crumbs []output.Breadcrumb
	for _, c := range checks {
		if c.Status != "fail" {
			continue
		}
		switch c.Name {
		case "Credentials", "Authentication":
			crumbs = append(crumbs, output.Breadcrumb{Action: "login", Cmd: "taskhub auth login", Description: "Sign in"})
		case "Gateway":
			crumbs = append(crumbs, output.Breadcrumb{Action: "reset", Cmd: "taskhub doctor --reset-gateway", Description: "Clear gateway failure state"})
		case "Workspace Access":
			crumbs = append(crumbs, output.Breadcrumb{Action: "workspaces", Cmd: "taskhub workspaces list", Description: "Pick a workspace you belong to"})
		case "Global Config", "Repo Config", "Local Config":
			crumbs = append(crumbs, output.Breadcrumb{Action: "config", Cmd: "taskhub config show", Description: "Review configuration"})
		}
	}

	seen := make(map[string]bool)
	unique := []output.Breadcrumb{}
	for _, b := range crumbs {
		if !seen[b.Cmd] {
			seen[b.Cmd] = true
			unique = append(unique, b)
		}
	}
	return unique
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func renderDoctorStyled(w io.Writer, result *DoctorResult) {
	r := output.NewRenderer(w, false)
	nameStyle := lipgloss.NewStyle().Bold(true)

	icons := map[string]string{
		"pass": r.Success.Render("✓"),
		"fail": r.Error.Render("✗"),
		"warn": r.Warning.Render("!"),
		"skip": r.Muted.Render("○"),
	}
	styles := map[string]lipgloss.Style{
		"pass": r.Success,
		"fail": r.Error,
		"warn": r.Warning,
		"skip": r.Muted,
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary.Render("TaskHub Doctor"))
	fmt.Fprintln(w)

	for _, c := range result.Checks {
		fmt.Fprintf(w, "  %s %s %s\n", icons[c.Status], nameStyle.Render(c.Name), styles[c.Status].Render(c.Message))
		if c.Hint != "" && (c.Status == "fail" || c.Status == "warn") {
			fmt.Fprintf(w, "      %s\n", r.Hint.Render("↳ "+c.Hint))
		}
	}
	fmt.Fprintln(w)

	var parts []string
	if result.Passed > 0 {
		parts = append(parts, r.Success.Render(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		parts = append(parts, r.Error.Render(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Warned > 0 {
		parts = append(parts, r.Warning.Render(fmt.Sprintf("%d %s", result.Warned, pluralize(result.Warned, "warning", "warnings"))))
	}
	if result.Skipped > 0 {
		parts = append(parts, r.Muted.Render(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(w, "  %s\n\n", strings.Join(parts, "  "))
}
