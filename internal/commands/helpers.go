package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/dateparse"
	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui/empty"
)

// workspaceID resolves the workspace for a command and enters its realm.
func workspaceID(cmd *cobra.Command, app *appctx.App) (string, error) {
	v, err := app.Resolver().Workspace(cmd.Context())
	if err != nil {
		return "", err
	}
	app.Hub.EnsureWorkspace(v.ID)
	return v.ID, nil
}

// projectID returns the explicit ID from args, or resolves one.
func projectID(cmd *cobra.Command, app *appctx.App, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		id := strings.TrimSpace(args[0])
		app.Hub.EnsureProject(id)
		return id, nil
	}
	if app.Flags.Project != "" {
		app.Hub.EnsureProject(app.Flags.Project)
		return app.Flags.Project, nil
	}
	ws, err := workspaceID(cmd, app)
	if err != nil {
		return "", err
	}
	v, err := app.Resolver().Project(cmd.Context(), ws)
	if err != nil {
		return "", err
	}
	app.Hub.EnsureProject(v.ID)
	return v.ID, nil
}

// requireArg returns args[0] or a usage error naming what is missing.
func requireArg(args []string, what, usage string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", output.ErrUsageHint(what+" required", "Usage: "+usage)
	}
	return strings.TrimSpace(args[0]), nil
}

// listFlags are the page and sort flags shared by paginated listings.
type listFlags struct {
	page   int
	limit  int
	sortBy string
	order  string
	search string
	all    bool
}

func (f *listFlags) register(cmd *cobra.Command, sortKeys string) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.limit, "limit", filter.DefaultLimit, fmt.Sprintf("Items per page (max %d)", filter.MaxLimit))
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "Sort by field ("+sortKeys+")")
	cmd.Flags().StringVar(&f.order, "order", "", "Sort order (asc, desc)")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Search text")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Fetch every page")
}

// state composes the flags into a filter state. The page is applied last
// because every other change resets it.
func (f *listFlags) state() (filter.State, error) {
	st := filter.New()
	if f.limit != filter.DefaultLimit {
		st = st.WithLimit(f.limit)
	}
	if f.sortBy != "" || f.order != "" {
		order, err := filter.ParseSortOrder(f.order)
		if err != nil {
			return st, err
		}
		st = st.WithSort(f.sortBy, order)
	}
	if f.search != "" {
		st = st.WithSearch(f.search)
	}
	if f.page < 1 {
		return st, output.ErrValidation("page", "must be at least 1")
	}
	return st.WithPage(f.page), nil
}

// loadAll follows the cursor from st until the last page.
func loadAll[T models.Record](st filter.State, load func(filter.State) (data.Collection[T], error)) (data.Collection[T], error) {
	var items []T
	var last *models.Pagination
	for {
		col, err := load(st)
		if err != nil {
			return data.Collection[T]{}, err
		}
		items = append(items, col.Items...)
		last = col.Pagination
		if last == nil || !last.HasNext {
			break
		}
		st = st.Next(*last)
	}
	return data.NewCollection(items, last), nil
}

// grepLoaded narrows a listing that is already in memory. A listing fetched
// with --all is complete; a single page of a larger listing is refused.
func grepLoaded[T any](items []T, cur *models.Pagination, all bool, query string, text func(T) string) ([]T, error) {
	if all {
		cur = nil
	}
	return filter.LocalSearch(items, cur, query, text)
}

// listCmdLine rebuilds a listing command from base and every filter in st
// except the page, so a page breadcrumb changes nothing else.
func listCmdLine(base string, st filter.State) string {
	var b strings.Builder
	b.WriteString(base)
	if st.Status != "" {
		fmt.Fprintf(&b, " --status %s", st.Status)
	}
	if st.Priority != "" {
		fmt.Fprintf(&b, " --priority %s", st.Priority)
	}
	if st.AssigneeID != "" {
		fmt.Fprintf(&b, " --assignee %s", st.AssigneeID)
	}
	if st.Search != "" {
		fmt.Fprintf(&b, " --search %q", st.Search)
	}
	if st.SortBy != "" {
		fmt.Fprintf(&b, " --sort %s", st.SortBy)
		if st.SortOrder == filter.Desc {
			b.WriteString(" --order desc")
		}
	}
	if st.Limit != filter.DefaultLimit && st.Limit > 0 {
		fmt.Fprintf(&b, " --limit %d", st.Limit)
	}
	return b.String()
}

// pageOptions adds the cursor to a listing response, plus next and previous
// page breadcrumbs that keep st's filters. An empty page past the end gets
// the beyond-last-page summary instead of the caller's empty state.
func pageOptions(base string, st filter.State, p *models.Pagination, n int, none empty.Message) []output.ResponseOption {
	if p == nil {
		if n == 0 {
			return none.Options()
		}
		return nil
	}
	var opts []output.ResponseOption
	opts = append(opts, output.WithMeta("pagination", *p))
	switch {
	case n == 0 && p.Beyond() && p.TotalPages > 0:
		opts = append(opts, empty.BeyondLastPage(p.TotalPages).Options()...)
	case n == 0:
		opts = append(opts, none.Options()...)
	default:
		opts = append(opts, output.WithSummary(fmt.Sprintf("Page %d of %d (%d total)", p.Page, max(p.TotalPages, 1), p.Total)))
		cmdLine := listCmdLine(base, st)
		if p.HasNext {
			opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
				Action:      "next",
				Cmd:         fmt.Sprintf("%s --page %d", cmdLine, st.Next(*p).Page),
				Description: "Next page",
			}))
		}
		if p.HasPrev {
			opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
				Action:      "prev",
				Cmd:         fmt.Sprintf("%s --page %d", cmdLine, st.Prev(*p).Page),
				Description: "Previous page",
			}))
		}
	}
	return opts
}

// parseDue accepts YYYY-MM-DD or RFC 3339. An empty string clears nothing
// and returns nil.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, ok := dateparse.Parse(s); ok {
		return &t, nil
	}
	return nil, output.ErrValidation("due", "must be YYYY-MM-DD, RFC 3339, or a relative date like tomorrow or +3")
}

// confirmOrForce asks before a destructive step unless --force was given.
// Non-interactive runs without --force are refused.
func confirmOrForce(app *appctx.App, force bool, prompt, description string) error {
	if force {
		return nil
	}
	if !app.IsInteractive() {
		return output.ErrUsageHint("Confirmation required", "Re-run with --force to skip the prompt")
	}
	ok, err := confirmDangerous(prompt, description)
	if err != nil {
		return err
	}
	if !ok {
		return output.ErrUsage("Canceled")
	}
	return nil
}
