package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskhub/taskhub-cli/internal/tui"
)

// Styles holds the lipgloss styles used by the presenter.
type Styles struct {
	Primary lipgloss.Style
	Normal  lipgloss.Style
	Muted   lipgloss.Style
	Subtle  lipgloss.Style // footer
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Heading lipgloss.Style
	Label   lipgloss.Style
	Body    lipgloss.Style
}

// NewStyles creates presenter styles from a theme. Unstyled output gets
// zero styles throughout.
func NewStyles(theme tui.Theme, styled bool) Styles {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		if !styled {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}
	return Styles{
		Primary: fg(theme.Primary).Bold(styled),
		Normal:  fg(theme.Foreground),
		Muted:   fg(theme.Muted),
		Subtle:  fg(theme.Border),
		Success: fg(theme.Success),
		Warning: fg(theme.Warning),
		Error:   fg(theme.Error),
		Heading: fg(theme.Muted).Bold(styled),
		Label:   fg(theme.Muted),
		Body:    fg(theme.Foreground),
	}
}

// EmphasisStyle returns the style for a schema emphasis name.
func (s Styles) EmphasisStyle(emphasis string) lipgloss.Style {
	switch emphasis {
	case "primary":
		return s.Primary
	case "muted":
		return s.Muted
	case "success":
		return s.Success
	case "warning":
		return s.Warning
	case "error":
		return s.Error
	}
	return s.Normal
}

// detailLine is one line of a detail view: a section heading, a body text
// block, or a labeled field.
type detailLine struct {
	heading string
	body    bool
	label   string
	value   string
	spec    FieldSpec
	raw     any
}

// detailLines lays out data by the schema's detail sections. A schema
// without sections shows every non-title field, sorted by name.
func detailLines(schema *EntitySchema, data map[string]any, locale Locale) []detailLine {
	sections := schema.Views.Detail.Sections
	if len(sections) == 0 {
		names := make([]string, 0, len(schema.Fields))
		for name := range schema.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		sections = []DetailSection{{Fields: names}}
	}

	var lines []detailLine
	for _, sec := range sections {
		if sec.Heading != "" {
			lines = append(lines, detailLine{heading: sec.Heading})
		}
		for _, name := range sec.Fields {
			spec := schema.Fields[name]
			if spec.Role == "title" || (spec.Collapse && isEmpty(data[name])) {
				continue
			}
			value := FormatField(spec, name, data, locale)
			if value == "" {
				continue
			}
			lines = append(lines, detailLine{
				body:  spec.Role == "body",
				label: fieldLabel(name, spec),
				value: value,
				spec:  spec,
				raw:   data[name],
			})
		}
	}
	return lines
}

// visibleActions returns the schema's affordances whose conditions hold,
// with their command templates filled in.
func visibleActions(schema *EntitySchema, data map[string]any) (cmds, labels []string) {
	for _, a := range schema.Actions {
		if EvalCondition(a.When, data) {
			cmds = append(cmds, RenderTemplate(a.Cmd, data))
			labels = append(labels, a.Label)
		}
	}
	return cmds, labels
}

// listColumns returns the schema's list columns, or its title and detail
// fields sorted by name.
func listColumns(schema *EntitySchema) []string {
	if cols := schema.Views.List.Columns; len(cols) > 0 {
		return cols
	}
	var cols []string
	for name, spec := range schema.Fields {
		if spec.Role == "title" || spec.Role == "detail" {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	return cols
}

// RenderDetail renders a single entity using its schema's detail view.
func RenderDetail(w io.Writer, schema *EntitySchema, data map[string]any, styles Styles, locale Locale) error {
	var b strings.Builder

	if headline := RenderHeadline(schema, data); headline != "" {
		b.WriteString(styles.Primary.Render(headline) + "\n")
	}

	lines := detailLines(schema, data, locale)
	width := 0
	for _, l := range lines {
		if l.heading == "" && !l.body {
			width = max(width, len(l.label))
		}
	}
	for _, l := range lines {
		switch {
		case l.heading != "":
			b.WriteString("\n" + styles.Heading.Render(l.heading) + "\n")
		case l.body:
			style := resolveEmphasis(l.spec, l.raw, styles)
			if l.spec.Emphasis == "" && l.spec.WhenOverdue == "" {
				style = styles.Body
			}
			b.WriteString("\n" + style.Render("  "+l.value) + "\n")
		default:
			b.WriteString(styles.Label.Render(fmt.Sprintf("  %-*s  ", width, l.label)))
			b.WriteString(resolveEmphasis(l.spec, l.raw, styles).Render(l.value) + "\n")
		}
	}

	if cmds, labels := visibleActions(schema, data); len(cmds) > 0 {
		b.WriteString("\n" + styles.Muted.Render("─────") + "\n")
		b.WriteString(styles.Subtle.Render("Next:") + "\n")
		cmdWidth := 0
		for _, c := range cmds {
			cmdWidth = max(cmdWidth, len(c))
		}
		for i, c := range cmds {
			b.WriteString(styles.Subtle.Render(fmt.Sprintf("  %-*s  %s", cmdWidth, c, labels[i])) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderList renders entities as aligned rows of the schema's list
// columns.
func RenderList(w io.Writer, schema *EntitySchema, data []map[string]any, styles Styles, locale Locale) error {
	columns := listColumns(schema)
	if len(columns) == 0 || len(data) == 0 {
		return nil
	}

	cells := make([][]string, len(data))
	widths := make([]int, len(columns))
	for i, item := range data {
		cells[i] = make([]string, len(columns))
		for j, col := range columns {
			cells[i][j] = FormatField(schema.Fields[col], col, item, locale)
			widths[j] = max(widths[j], lipgloss.Width(cells[i][j]))
		}
	}

	var b strings.Builder
	for i, item := range data {
		parts := make([]string, len(columns))
		for j, col := range columns {
			cell := cells[i][j]
			if j < len(columns)-1 {
				cell += strings.Repeat(" ", widths[j]-lipgloss.Width(cell))
			}
			parts[j] = resolveEmphasis(schema.Fields[col], item[col], styles).Render(cell)
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderDetailMarkdown renders a single entity as Markdown.
func RenderDetailMarkdown(w io.Writer, schema *EntitySchema, data map[string]any, locale Locale) error {
	var b strings.Builder

	if headline := RenderHeadline(schema, data); headline != "" {
		b.WriteString("**" + headline + "**\n")
	}
	for _, l := range detailLines(schema, data, locale) {
		switch {
		case l.heading != "":
			b.WriteString("\n#### " + l.heading + "\n\n")
		case l.body:
			b.WriteString("\n" + l.value + "\n")
		default:
			b.WriteString("- **" + l.label + ":** " + l.value + "\n")
		}
	}
	if cmds, labels := visibleActions(schema, data); len(cmds) > 0 {
		b.WriteString("\n#### Next\n\n")
		for i, c := range cmds {
			b.WriteString("- `" + c + "`: " + labels[i] + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderListMarkdown renders entities as a Markdown table.
func RenderListMarkdown(w io.Writer, schema *EntitySchema, data []map[string]any, locale Locale) error {
	columns := listColumns(schema)
	if len(columns) == 0 || len(data) == 0 {
		return nil
	}

	var b strings.Builder
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = fieldLabel(col, schema.Fields[col])
	}
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, item := range data {
		for i, col := range columns {
			cells[i] = strings.ReplaceAll(FormatField(schema.Fields[col], col, item, locale), "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// resolveEmphasis picks a field's style: per-value emphasis first, then
// when_overdue on the field's own value, then the static emphasis.
func resolveEmphasis(spec FieldSpec, val any, styles Styles) lipgloss.Style {
	if e, ok := spec.EmphasisFor[formatText(val)]; ok {
		return styles.EmphasisStyle(e)
	}
	if spec.WhenOverdue != "" && IsOverdue(val) {
		return styles.EmphasisStyle(spec.WhenOverdue)
	}
	if spec.Emphasis != "" {
		return styles.EmphasisStyle(spec.Emphasis)
	}
	return styles.Normal
}

// fieldLabel returns the field's schema label, or a label derived from a
// camelCase key: "dueDate" is "Due Date", "createdAt" is "Created".
func fieldLabel(key string, spec FieldSpec) string {
	if spec.Label != "" {
		return spec.Label
	}
	var words []string
	start := 0
	for i := 1; i < len(key); i++ {
		if key[i] >= 'A' && key[i] <= 'Z' {
			words = append(words, key[start:i])
			start = i
		}
	}
	words = append(words, key[start:])
	if n := len(words); n > 1 && (words[n-1] == "At" || words[n-1] == "On") {
		words = words[:n-1]
	}
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	}
	return false
}
