package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/docs"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/richtext"
)

// NewDocsCmd creates the docs command group.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"doc", "documentation"},
		Short:   "Read and edit task and project documentation",
		Long: `Read and edit the rich-text documentation attached to a task or project.

Edits are kept in a local shadow copy until they are saved. While a shadow
exists it is what show returns, so unsaved work survives restarts. Use
discard to drop it and read the saved copy again.

Entity types: task, project.`,
	}

	cmd.AddCommand(
		newDocsShowCmd(),
		newDocsEditCmd(),
		newDocsSaveCmd(),
		newDocsStatusCmd(),
		newDocsDiscardCmd(),
	)

	return cmd
}

// docView is a document as printed by the docs commands.
type docView struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Source     docs.Source     `json:"source"`
	HasChanges bool            `json:"has_changes"`
	Empty      bool            `json:"empty"`
	Markdown   string          `json:"markdown"`
	Content    json.RawMessage `json:"content,omitempty"`
}

func viewOf(s *docs.Session, entityType, entityID string) (docView, error) {
	d, err := s.Document()
	if err != nil {
		return docView{}, err
	}
	return docView{
		EntityType: entityType,
		EntityID:   entityID,
		Source:     s.Source(),
		HasChanges: s.HasChanges(),
		Empty:      d.IsEmpty(),
		Markdown:   d.Markdown(),
		Content:    s.Content(),
	}, nil
}

// openDoc validates the entity arguments and opens its session.
func openDoc(cmd *cobra.Command, app *appctx.App, args []string, usage string) (*docs.Session, string, string, error) {
	if len(args) < 2 {
		return nil, "", "", output.ErrUsageHint("Entity type and ID required", "Usage: "+usage)
	}
	entityType, entityID := strings.ToLower(args[0]), args[1]
	s, err := docs.NewSession(app.Hub, app.Shadows, entityType, entityID)
	if err != nil {
		return nil, "", "", err
	}
	if err := s.Open(cmd.Context()); err != nil {
		return nil, "", "", err
	}
	return s, entityType, entityID, nil
}

func docSummary(v docView) string {
	switch {
	case v.HasChanges:
		return fmt.Sprintf("Documentation for %s %s (unsaved changes)", v.EntityType, v.EntityID)
	case v.Empty:
		return fmt.Sprintf("No documentation for %s %s yet", v.EntityType, v.EntityID)
	}
	return fmt.Sprintf("Documentation for %s %s", v.EntityType, v.EntityID)
}

func newDocsShowCmd() *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "show <type> <id>",
		Short: "Show documentation",
		Long: `Show an entity's documentation: the local shadow if one exists, else the
saved copy. --render prints formatted Markdown for reading in a terminal.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			s, typ, id, err := openDoc(cmd, app, args, "taskhub docs show <task|project> <id>")
			if err != nil {
				return err
			}
			v, err := viewOf(s, typ, id)
			if err != nil {
				return err
			}

			if render {
				width := 80
				if f, ok := app.Stdout.(*os.File); ok {
					if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
						width = w
					}
				}
				out, err := richtext.RenderMarkdownWithWidth(v.Markdown, width)
				if err != nil {
					return err
				}
				_, err = io.WriteString(app.Stdout, out)
				return err
			}

			crumbs := []output.Breadcrumb{{
				Action: "edit", Cmd: fmt.Sprintf("taskhub docs edit %s %s --file <path.md>", typ, id), Description: "Replace from a Markdown file",
			}}
			if v.HasChanges {
				crumbs = append(crumbs,
					output.Breadcrumb{Action: "save", Cmd: fmt.Sprintf("taskhub docs save %s %s", typ, id), Description: "Save the local changes"},
					output.Breadcrumb{Action: "discard", Cmd: fmt.Sprintf("taskhub docs discard %s %s", typ, id), Description: "Drop the local changes"},
				)
			}
			return app.OK(v, output.WithSummary(docSummary(v)), output.WithBreadcrumbs(crumbs...))
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "Print formatted Markdown")

	return cmd
}

func newDocsEditCmd() *cobra.Command {
	var file string
	var fromStdin, asJSON, watch, save bool

	cmd := &cobra.Command{
		Use:   "edit <type> <id>",
		Short: "Edit documentation",
		Long: `Replace an entity's documentation in the local shadow.

Content comes from --file (Markdown) or --stdin. With --json-content the input is
editor JSON instead of Markdown. --save sends the result to the gateway.

--watch keeps running and applies the file every time it is written, so
you can edit in your own editor. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			ctx := cmd.Context()

			if file == "" && !fromStdin {
				return output.ErrUsageHint("No content given", "Use --file <path.md> or --stdin")
			}
			if watch && file == "" {
				return output.ErrUsageHint("--watch needs --file", "Use --file <path.md> --watch")
			}
			s, typ, id, err := openDoc(cmd, app, args, "taskhub docs edit <task|project> <id> --file <path.md>")
			if err != nil {
				return err
			}

			apply := func(text string) error {
				if asJSON {
					return s.Edit(json.RawMessage(text))
				}
				return s.EditMarkdown(text)
			}

			var text string
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			} else {
				text, err = readDocFile(file, asJSON)
				if err != nil {
					return output.ErrUsage(err.Error())
				}
			}
			if err := apply(text); err != nil {
				return err
			}
			if save {
				if _, err := s.Save(ctx); err != nil {
					return err
				}
			}

			if watch {
				fmt.Fprintf(app.Stderr, "Watching %s (Ctrl-C to stop)\n", file)
				err := docs.Watch(ctx, file, docs.DefaultDebounce, func(md string) error {
					if err := apply(md); err != nil {
						fmt.Fprintf(app.Stderr, "Skipped change: %v\n", err)
						return nil
					}
					if save {
						if _, err := s.Save(ctx); err != nil {
							fmt.Fprintf(app.Stderr, "Save failed, kept locally: %v\n", err)
							return nil
						}
						fmt.Fprintln(app.Stderr, "Saved")
						return nil
					}
					fmt.Fprintln(app.Stderr, "Updated local copy")
					return nil
				})
				if err != nil {
					return err
				}
			}

			v, err := viewOf(s, typ, id)
			if err != nil {
				return err
			}
			summary := "Documentation updated locally"
			var crumbs []output.Breadcrumb
			if v.HasChanges {
				crumbs = append(crumbs, output.Breadcrumb{
					Action: "save", Cmd: fmt.Sprintf("taskhub docs save %s %s", typ, id), Description: "Save to the gateway",
				})
			} else {
				summary = "Documentation saved"
			}
			return app.OK(v, output.WithSummary(summary), output.WithBreadcrumbs(crumbs...))
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read content from this file")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read content from stdin")
	cmd.Flags().BoolVar(&asJSON, "json-content", false, "Input is editor JSON, not Markdown")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-apply the file whenever it changes")
	cmd.Flags().BoolVar(&save, "save", false, "Save to the gateway after each edit")
	cmd.MarkFlagsMutuallyExclusive("file", "stdin")

	return cmd
}

// readDocFile reads Markdown through the text-file checks, or JSON as is.
func readDocFile(path string, asJSON bool) (string, error) {
	if !asJSON {
		return richtext.ReadSource(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newDocsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <type> <id>",
		Short: "Save local changes to the gateway",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			s, typ, id, err := openDoc(cmd, app, args, "taskhub docs save <task|project> <id>")
			if err != nil {
				return err
			}
			if !s.HasChanges() {
				v, err := viewOf(s, typ, id)
				if err != nil {
					return err
				}
				return app.OK(v, output.WithSummary("Nothing to save"))
			}
			if _, err := s.Save(cmd.Context()); err != nil {
				return err
			}
			v, err := viewOf(s, typ, id)
			if err != nil {
				return err
			}
			return app.OK(v, output.WithSummary("Documentation saved"))
		},
	}
}

// shadowStatus is one entry of docs status.
type shadowStatus struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Dirty      bool   `json:"dirty"`
	UpdatedAt  string `json:"updated_at"`
}

func newDocsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List local shadow copies",
		Long:  "List the documentation kept locally, marking copies with unsaved changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			shadows, err := app.Shadows.List()
			if err != nil {
				return err
			}
			items := make([]shadowStatus, 0, len(shadows))
			dirty := 0
			for _, sh := range shadows {
				if sh.Dirty {
					dirty++
				}
				items = append(items, shadowStatus{
					EntityType: sh.EntityType,
					EntityID:   sh.EntityID,
					Dirty:      sh.Dirty,
					UpdatedAt:  sh.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			return app.OK(items,
				output.WithSummary(fmt.Sprintf("%d shadow(s), %d unsaved", len(items), dirty)),
				output.WithContext("path", app.Shadows.Path()),
			)
		},
	}
}

func newDocsDiscardCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "discard <type> <id>",
		Short: "Drop the local copy",
		Long:  "Drop the local shadow, including unsaved changes, and show the saved copy.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			s, typ, id, err := openDoc(cmd, app, args, "taskhub docs discard <task|project> <id>")
			if err != nil {
				return err
			}
			if s.HasChanges() {
				if err := confirmOrForce(app, force, "Discard unsaved changes?", ""); err != nil {
					return err
				}
			}
			if err := s.Discard(); err != nil {
				return err
			}
			if err := s.Open(cmd.Context()); err != nil {
				return err
			}
			v, err := viewOf(s, typ, id)
			if err != nil {
				return err
			}
			return app.OK(v, output.WithSummary("Local copy discarded"))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Discard without asking")

	return cmd
}
