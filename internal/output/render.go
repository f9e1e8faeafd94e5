package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"

	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/presenter"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool
	theme  tui.Theme

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer with styles from the resolved theme.
// Styling is enabled when writing to a TTY, or when forceStyled is true.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	return NewRendererWithTheme(w, forceStyled, tui.ResolveTheme())
}

// NewRendererWithTheme creates a renderer with a specific theme.
func NewRendererWithTheme(w io.Writer, forceStyled bool, theme tui.Theme) *Renderer {
	width, isTTY := terminalInfo(w)
	styled := isTTY || forceStyled

	// lipgloss.NewRenderer ignores the profile here, so set it globally.
	if styled {
		lipgloss.SetColorProfile(2) // TrueColor
	} else {
		lipgloss.SetColorProfile(0) // Ascii
	}

	// Output may be piped, so the dark palette is used without detection.
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		if !styled {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}
	return &Renderer{
		width:     width,
		styled:    styled,
		theme:     theme,
		Summary:   fg(theme.Primary).Bold(styled),
		Muted:     fg(theme.Muted),
		Data:      fg(theme.Foreground),
		Error:     fg(theme.Error).Bold(styled),
		Hint:      fg(theme.Muted).Italic(styled),
		Warning:   fg(theme.Warning),
		Success:   fg(theme.Success),
		Header:    fg(theme.Foreground).Bold(styled),
		Cell:      fg(theme.Foreground),
		CellMuted: fg(theme.Muted),
	}
}

func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80
	f, ok := w.(*os.File)
	if !ok {
		return width, false
	}
	if cols, _, err := term.GetSize(f.Fd()); err == nil && cols >= 40 {
		width = cols
	}
	return width, term.IsTerminal(f.Fd())
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary) + "\n\n")
	}

	data := NormalizeData(resp.Data)
	styles := presenter.NewStyles(r.theme, r.styled)
	if resp.Entity == "" || !presenter.PresentWith(&b, data, resp.Entity, presenter.ModeStyled, styles, presenter.DetectLocale()) {
		r.renderView(&b, shape(data))
	}

	for _, msg := range resp.Warnings {
		b.WriteString(r.Warning.Render("Warning: "+msg) + "\n")
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n" + r.Muted.Render("Next:") + "\n")
		for _, bc := range resp.Breadcrumbs {
			line := "  " + bc.Cmd
			if bc.Description != "" {
				line += "  # " + bc.Description
			}
			b.WriteString(r.Muted.Render(line) + "\n")
		}
	}

	if line := statsLine(resp.Meta); line != "" {
		b.WriteString("\n" + r.Muted.Render("Stats: "+line) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder
	b.WriteString(r.Error.Render("Error: "+resp.Error) + "\n")
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: "+resp.Hint) + "\n")
	}
	if resp.Reason != "" {
		b.WriteString(r.Muted.Render("Reason: "+resp.Reason) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderView(b *strings.Builder, v view) {
	switch v.kind {
	case viewNoResults:
		b.WriteString(r.Muted.Render("(no results)") + "\n")
	case viewNoData:
		b.WriteString(r.Muted.Render("(no data)") + "\n")
	case viewText:
		b.WriteString(r.Data.Render(v.text) + "\n")
	case viewList:
		for _, item := range v.items {
			b.WriteString(r.Data.Render("• "+formatCell(item)) + "\n")
		}
	case viewObject:
		width := 0
		for _, k := range v.keys {
			width = max(width, len(formatHeader(k)))
		}
		for _, k := range v.keys {
			val := r.Data
			if mutedKeys[k] {
				val = r.CellMuted
			}
			label := r.Muted.Render(fmt.Sprintf("%-*s: ", width, formatHeader(k)))
			b.WriteString(label + val.Render(formatValue(k, v.object[k], time.Now())) + "\n")
		}
	case viewTable:
		keys := r.fitColumns(v.keys, v.rows)
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return r.Header
				case col < len(keys) && mutedKeys[keys[col]]:
					return r.CellMuted
				}
				return r.Cell
			})
		headers := make([]string, len(keys))
		for i, k := range keys {
			headers[i] = formatHeader(k)
		}
		t.Headers(headers...)
		for _, row := range v.rows {
			cells := make([]string, len(keys))
			for i, k := range keys {
				cells[i] = formatCell(row[k])
			}
			t.Row(cells...)
		}
		b.WriteString(t.String() + "\n")
	}
}

// fitColumns drops the lowest-ranked columns until the table fits the
// terminal. Cells count at most 40 wide since formatCell truncates.
func (r *Renderer) fitColumns(keys []string, rows []map[string]any) []string {
	const padding = 2
	total := 0
	widths := make([]int, len(keys))
	for i, k := range keys {
		widths[i] = lipgloss.Width(formatHeader(k))
		for _, row := range rows {
			widths[i] = max(widths[i], lipgloss.Width(formatCell(row[k])))
		}
		widths[i] = min(widths[i], 40) + padding
		total += widths[i]
	}
	n := len(keys)
	for n > 1 && total > r.width {
		n--
		total -= widths[n]
	}
	return keys[:n]
}

// MarkdownRenderer outputs literal Markdown syntax (portable, pipeable).
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a renderer for literal Markdown output.
func NewMarkdownRenderer() *MarkdownRenderer { return &MarkdownRenderer{} }

// RenderResponse renders a success response as literal Markdown.
func (r *MarkdownRenderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString("## " + resp.Summary + "\n\n")
	}

	data := NormalizeData(resp.Data)
	if resp.Entity == "" || !presenter.PresentWith(&b, data, resp.Entity, presenter.ModeMarkdown, presenter.Styles{}, presenter.DetectLocale()) {
		renderMarkdownView(&b, shape(data))
	}

	for _, msg := range resp.Warnings {
		b.WriteString("\n> **Warning:** " + msg + "\n")
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n### Next\n\n")
		for _, bc := range resp.Breadcrumbs {
			line := "- `" + bc.Cmd + "`"
			if bc.Description != "" {
				line += ": " + bc.Description
			}
			b.WriteString(line + "\n")
		}
	}

	if line := statsLine(resp.Meta); line != "" {
		b.WriteString("\n*Stats: " + line + "*\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response as literal Markdown.
func (r *MarkdownRenderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	s := "**Error:** " + resp.Error + "\n"
	if resp.Hint != "" {
		s += "\n*Hint: " + resp.Hint + "*\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

func renderMarkdownView(b *strings.Builder, v view) {
	switch v.kind {
	case viewNoResults:
		b.WriteString("*No results*\n")
	case viewNoData:
		b.WriteString("*No data*\n")
	case viewText:
		b.WriteString(v.text + "\n")
	case viewList:
		for _, item := range v.items {
			b.WriteString("- " + formatCell(item) + "\n")
		}
	case viewObject:
		for _, k := range v.keys {
			b.WriteString("- **" + formatHeader(k) + ":** " + formatValue(k, v.object[k], time.Now()) + "\n")
		}
	case viewTable:
		cells := make([]string, len(v.keys))
		for i, k := range v.keys {
			cells[i] = formatHeader(k)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(v.keys)) + "\n")
		for _, row := range v.rows {
			for i, k := range v.keys {
				cells[i] = strings.ReplaceAll(formatCell(row[k]), "|", `\|`)
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}
}

type viewKind int

const (
	viewNone viewKind = iota
	viewNoResults
	viewNoData
	viewText
	viewList
	viewObject
	viewTable
)

// view is generic data laid out for a renderer: the keys to show, in rank
// order, and the values behind them.
type view struct {
	kind   viewKind
	text   string
	items  []any
	keys   []string
	object map[string]any
	rows   []map[string]any
}

// shape lays out normalized response data.
func shape(data any) view {
	switch d := data.(type) {
	case nil:
		return view{kind: viewNoData}
	case string:
		return view{kind: viewText, text: d}
	case []any:
		if len(d) == 0 {
			return view{kind: viewNoResults}
		}
		return view{kind: viewList, items: d}
	case []map[string]any:
		if len(d) == 0 {
			return view{kind: viewNoResults}
		}
		keys := visibleKeys(d[0])
		if len(keys) == 0 {
			return view{}
		}
		return view{kind: viewTable, keys: keys, rows: d}
	case map[string]any:
		keys := visibleKeys(d)
		if len(keys) == 0 {
			return view{kind: viewNoData}
		}
		return view{kind: viewObject, keys: keys, object: d}
	}
	return view{kind: viewText, text: fmt.Sprintf("%v", data)}
}

// keyRank orders columns and fields; unranked keys sort after these.
var keyRank = map[string]int{
	"id":           1,
	"name":         2,
	"title":        2,
	"content":      3,
	"status":       4,
	"accessLevel":  4,
	"priority":     5,
	"position":     5,
	"dueDate":      6,
	"assignee":     6,
	"email":        6,
	"description":  7,
	"membersCount": 7,
	"tasksCount":   7,
	"createdAt":    8,
	"updatedAt":    9,
}

var mutedKeys = map[string]bool{"id": true, "createdAt": true, "updatedAt": true}

// hiddenKeys are foreign keys; the related entity is shown by name.
var hiddenKeys = map[string]bool{
	"ownerId":     true,
	"workspaceId": true,
	"projectId":   true,
	"taskId":      true,
	"userId":      true,
	"assigneeId":  true,
	"authorId":    true,
	"actorId":     true,
	"url":         true,
}

// visibleKeys returns m's scalar keys, minus hidden ones, in rank order.
func visibleKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if hiddenKeys[k] {
			continue
		}
		switch v.(type) {
		case map[string]any, []map[string]any, []any:
			continue
		}
		keys = append(keys, k)
	}
	rank := func(k string) int {
		if n, ok := keyRank[k]; ok {
			return n
		}
		return 50
	}
	sort.Slice(keys, func(i, j int) bool {
		if ri, rj := rank(keys[i]), rank(keys[j]); ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// formatHeader turns a camelCase key into a title: "membersCount" becomes
// "Members Count" and a trailing "At" is dropped.
func formatHeader(key string) string {
	var words []string
	start := 0
	for i := 1; i < len(key); i++ {
		if key[i] >= 'A' && key[i] <= 'Z' {
			words = append(words, key[start:i])
			start = i
		}
	}
	words = append(words, key[start:])
	if n := len(words); n > 1 && words[n-1] == "At" {
		words = words[:n-1]
	}
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatCell(val any) string {
	switch v := val.(type) {
	case string:
		return ansi.Truncate(v, 40, "...")
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := formatScalar(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", ")
	}
	return formatScalar(val)
}

func formatScalar(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	case map[string]any:
		for _, k := range []string{"name", "title", "id"} {
			if x, ok := v[k]; ok {
				return formatScalar(x)
			}
		}
		return ""
	}
	return fmt.Sprintf("%v", val)
}

// formatValue is formatCell with dates made readable: timestamps from the
// last week read relative to now, older ones and plain dates as "Jan 2,
// 2006".
func formatValue(key string, val any, now time.Time) string {
	s, ok := val.(string)
	if !ok || s == "" || !(strings.HasSuffix(key, "At") || strings.HasSuffix(key, "Date")) {
		return formatCell(val)
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d.Format("Jan 2, 2006")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return formatCell(val)
	}
	if age := now.Sub(t); age < 0 || age >= 7*24*time.Hour {
		return t.Format("Jan 2, 2006")
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// statsLine formats --stats session metrics from the response meta.
func statsLine(meta map[string]any) string {
	stats, _ := meta["stats"].(map[string]any)
	if stats == nil {
		return ""
	}
	return strings.Join(observability.SessionMetricsFromMap(stats).FormatParts(), " | ")
}
