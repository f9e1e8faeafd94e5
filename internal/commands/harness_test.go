package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/resolve"
)

// envelope is the JSON success envelope as tests read it.
type envelope struct {
	OK          bool                       `json:"ok"`
	Data        json.RawMessage            `json:"data"`
	Summary     string                     `json:"summary"`
	Breadcrumbs []output.Breadcrumb        `json:"breadcrumbs"`
	Context     map[string]any             `json:"context"`
	Meta        map[string]json.RawMessage `json:"meta"`
	Warnings    []string                   `json:"warnings"`
}

func (e envelope) crumb(action string) (output.Breadcrumb, bool) {
	for _, b := range e.Breadcrumbs {
		if b.Action == action {
			return b, true
		}
	}
	return output.Breadcrumb{}, false
}

// testEnv is one seeded gateway plus the local cache a run of commands
// shares, the way successive CLI invocations share the user's cache.
type testEnv struct {
	gw       *gatewaytest.Gateway
	cacheDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("TASKHUB_NO_KEYRING", "1")
	t.Setenv("TASKHUB_TOKEN", "")
	t.Setenv("TASKHUB_DEBUG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return &testEnv{gw: gatewaytest.New(t), cacheDir: t.TempDir()}
}

type runOpt func(*appctx.App)

func withProject(id string) runOpt {
	return func(a *appctx.App) { a.Flags.Project = id }
}

func withoutWorkspace() runOpt {
	return func(a *appctx.App) { a.Config.WorkspaceID = "" }
}

// interactive makes the app act as if attached to a terminal, with
// output still going to the buffer as JSON.
func interactive() runOpt {
	return func(a *appctx.App) { a.Flags.JSON = false }
}

// newApp builds a fresh app against the gateway, writing JSON into out.
func (e *testEnv) newApp(out *bytes.Buffer, opts ...runOpt) *appctx.App {
	cfg := &config.Config{
		BaseURL:     e.gw.URL(),
		WorkspaceID: gatewaytest.WorkspaceID,
		CacheDir:    e.cacheDir,
		Sources:     map[string]string{},
	}
	app := appctx.NewApp(cfg,
		appctx.WithClient(e.gw.Client()),
		appctx.WithWriters(out, &bytes.Buffer{}),
		appctx.WithResolverOptions(resolve.WithTerminal(func() bool { return true })),
	)
	app.Flags.JSON = true
	for _, opt := range opts {
		opt(app)
	}
	app.ApplyFlags()
	return app
}

// run executes cmd with args in a fresh app and decodes the envelope.
func (e *testEnv) run(t *testing.T, cmd *cobra.Command, args []string, opts ...runOpt) (envelope, error) {
	t.Helper()
	var out bytes.Buffer
	app := e.newApp(&out, opts...)
	defer app.Close()

	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(appctx.WithApp(context.Background(), app))
	if err := cmd.Execute(); err != nil {
		return envelope{}, err
	}

	var env envelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env), out.String())
	return env, nil
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// stub replaces a package-level seam for the duration of the test.
func stub[T any](t *testing.T, target *T, v T) {
	t.Helper()
	old := *target
	*target = v
	t.Cleanup(func() { *target = old })
}
