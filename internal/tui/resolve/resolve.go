// Package resolve fills in the workspace and project a command runs
// against. Flags win, then config, then an interactive picker when a
// terminal is attached.
package resolve

import (
	"context"
	"os"

	"github.com/taskhub/taskhub-cli/internal/config"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/tui"
	"github.com/taskhub/taskhub-cli/internal/tui/recents"
)

// Flags are the CLI flag values relevant to resolution.
type Flags struct {
	Workspace string
	Project   string

	// Machine output flags disable prompts.
	Agent   bool
	JSON    bool
	Quiet   bool
	IDsOnly bool
	Count   bool
}

// PickFunc shows a picker. tui.Pick in production.
type PickFunc func(ctx context.Context, fetch tui.PageFetcher, opts ...tui.PickerOption) (*tui.Choice, error)

// Resolver resolves missing scope options.
type Resolver struct {
	hub     *data.Hub
	config  *config.Config
	flags   Flags
	recents *recents.Store
	pick    PickFunc
	tty     func() bool

	confirm    ConfirmFunc
	configPath string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFlags sets the CLI flag values.
func WithFlags(f Flags) Option {
	return func(r *Resolver) { r.flags = f }
}

// WithRecents offers recently used entries first and records picks.
func WithRecents(s *recents.Store) Option {
	return func(r *Resolver) { r.recents = s }
}

// WithPicker replaces the interactive picker.
func WithPicker(p PickFunc) Option {
	return func(r *Resolver) { r.pick = p }
}

// WithTerminal overrides terminal detection.
func WithTerminal(isTTY func() bool) Option {
	return func(r *Resolver) { r.tty = isTTY }
}

// New creates a Resolver.
func New(hub *data.Hub, cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{
		hub:        hub,
		config:     cfg,
		pick:       tui.Pick,
		tty:        stdoutIsTerminal,
		confirm:    confirmDefault,
		configPath: config.GlobalConfigPath(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsInteractive reports whether prompts may be shown: stdout is a terminal
// and no machine-output flag is set.
func (r *Resolver) IsInteractive() bool {
	f := r.flags
	if f.Agent || f.JSON || f.Quiet || f.IDsOnly || f.Count {
		return false
	}
	return r.tty()
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Source tells where a resolved value came from.
type Source int

const (
	SourceFlag Source = iota
	SourceConfig
	SourcePrompt
	// SourceDefault means the only candidate was taken without asking.
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceFlag:
		return "flag"
	case SourceConfig:
		return "config"
	case SourcePrompt:
		return "prompt"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Value is a resolved ID and its provenance.
type Value struct {
	ID     string
	Title  string
	Source Source
}

func (r *Resolver) recent(kind, workspaceID string) []tui.Choice {
	if r.recents == nil {
		return nil
	}
	var out []tui.Choice
	for _, it := range r.recents.Get(kind, workspaceID) {
		out = append(out, tui.Choice{ID: it.ID, Title: it.Title, Detail: it.Detail})
	}
	return out
}

// Remember records an entity as recently used.
func (r *Resolver) Remember(kind string, c tui.Choice, workspaceID string) {
	if r.recents == nil {
		return
	}
	r.recents.Add(recents.Item{ID: c.ID, Title: c.Title, Detail: c.Detail, Kind: kind, WorkspaceID: workspaceID})
}
