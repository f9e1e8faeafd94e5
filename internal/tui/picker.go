package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Choice is one selectable row in a picker.
type Choice struct {
	ID     string
	Title  string
	Detail string
}

func (c Choice) filterValue() string {
	return strings.ToLower(c.Title + " " + c.Detail)
}

// Page is one batch of choices. Next is the page to request after it, or 0
// when there is nothing more.
type Page struct {
	Choices []Choice
	Next    int
}

// PageFetcher loads a 1-based page of choices.
type PageFetcher func(ctx context.Context, page int) (Page, error)

// StaticPages serves a fixed slice as a single page.
func StaticPages(choices []Choice) PageFetcher {
	return func(context.Context, int) (Page, error) {
		return Page{Choices: choices}, nil
	}
}

// pickerModel is a filterable list that loads further pages as the cursor
// nears the end.
type pickerModel struct {
	ctx     context.Context
	fetch   PageFetcher
	styles  *Styles
	input   textinput.Model
	spinner spinner.Model

	title          string
	maxVisible     int
	fetchThreshold int
	autoSelect     bool

	recent   []Choice
	items    []Choice
	filtered []Choice
	original map[string]Choice

	cursor int
	scroll int

	next        int
	initial     bool
	loadingMore bool
	fetchErr    error

	selected *Choice
	quitting bool
}

// PickerOption configures a picker.
type PickerOption func(*pickerModel)

// WithPickerTitle sets the heading.
func WithPickerTitle(title string) PickerOption {
	return func(m *pickerModel) { m.title = title }
}

// WithMaxVisible sets how many rows are shown at once.
func WithMaxVisible(n int) PickerOption {
	return func(m *pickerModel) {
		if n > 0 {
			m.maxVisible = n
		}
	}
}

// WithFetchThreshold sets how close to the end the cursor gets before the
// next page is requested.
func WithFetchThreshold(n int) PickerOption {
	return func(m *pickerModel) { m.fetchThreshold = n }
}

// WithRecent lists recently used choices first, marked with "* ".
func WithRecent(choices []Choice) PickerOption {
	return func(m *pickerModel) { m.recent = choices }
}

// WithAutoSelectSingle returns immediately when the only page holds exactly
// one choice.
func WithAutoSelectSingle() PickerOption {
	return func(m *pickerModel) { m.autoSelect = true }
}

// WithPickerTheme overrides the resolved theme.
func WithPickerTheme(theme Theme) PickerOption {
	return func(m *pickerModel) { m.styles = NewStyles(theme) }
}

func newPickerModel(ctx context.Context, fetch PageFetcher, opts ...PickerOption) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Width = 40
	ti.Focus()

	m := pickerModel{
		ctx:            ctx,
		fetch:          fetch,
		styles:         NewStyles(ResolveTheme()),
		input:          ti,
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot)),
		title:          "Select an item",
		maxVisible:     10,
		fetchThreshold: 3,
		original:       make(map[string]Choice),
		next:           1,
		initial:        true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner.Style = m.styles.Cursor

	for _, c := range m.recent {
		m.original[c.ID] = c
		m.items = append(m.items, Choice{ID: c.ID, Title: "* " + c.Title, Detail: c.Detail})
	}
	m.filtered = m.items
	return m
}

// pageLoadedMsg carries the result of one fetch.
type pageLoadedMsg struct {
	page    Page
	err     error
	initial bool
}

func (m pickerModel) fetchPage(initial bool) tea.Cmd {
	n := m.next
	return func() tea.Msg {
		page, err := m.fetch(m.ctx, n)
		return pageLoadedMsg{page: page, err: err, initial: initial}
	}
}

func (m pickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPage(true))
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		return m.pageLoaded(msg)

	case spinner.TickMsg:
		if m.initial || m.loadingMore {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m pickerModel) pageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	m.loadingMore = false
	if msg.initial {
		m.initial = false
	}
	if msg.err != nil {
		m.fetchErr = msg.err
		return m, nil
	}
	m.fetchErr = nil
	m.next = msg.page.Next

	for _, c := range msg.page.Choices {
		if _, seen := m.original[c.ID]; seen {
			continue
		}
		m.original[c.ID] = c
		m.items = append(m.items, c)
	}
	m.filtered = m.filter(m.input.Value())

	if msg.initial && m.autoSelect && m.next == 0 && len(m.items) == 1 {
		m.selected = m.lookup(m.items[0].ID)
		return m, tea.Quit
	}

	// Keep paging while a query has no matches yet.
	if m.next != 0 && len(m.filtered) == 0 && strings.TrimSpace(m.input.Value()) != "" {
		m.loadingMore = true
		return m, tea.Batch(m.spinner.Tick, m.fetchPage(false))
	}
	if msg.initial {
		return m, textinput.Blink
	}
	return m, nil
}

func (m pickerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.initial {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if m.cursor < len(m.filtered) {
			m.selected = m.lookup(m.filtered[m.cursor].ID)
		}
		return m, tea.Quit
	case "tab":
		if len(m.filtered) > 0 {
			m.selected = m.lookup(m.filtered[0].ID)
		}
		return m, tea.Quit
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
			m.scroll = min(m.scroll, m.cursor)
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			if m.cursor >= m.scroll+m.maxVisible {
				m.scroll = m.cursor - m.maxVisible + 1
			}
		}
		if m.next != 0 && !m.loadingMore && len(m.filtered)-1-m.cursor < m.fetchThreshold {
			m.loadingMore = true
			return m, tea.Batch(m.spinner.Tick, m.fetchPage(false))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filtered = m.filter(m.input.Value())
	m.cursor, m.scroll = 0, 0
	if m.next != 0 && !m.loadingMore && len(m.filtered) == 0 {
		m.loadingMore = true
		return m, tea.Batch(cmd, m.spinner.Tick, m.fetchPage(false))
	}
	return m, cmd
}

func (m pickerModel) filter(query string) []Choice {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return m.items
	}
	var out []Choice
	for _, c := range m.items {
		if strings.Contains(c.filterValue(), query) {
			out = append(out, c)
		}
	}
	return out
}

// lookup returns the undecorated choice for id.
func (m pickerModel) lookup(id string) *Choice {
	if c, ok := m.original[id]; ok {
		return &c
	}
	return nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title) + "\n\n")

	if m.initial {
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render("Loading...") + "\n")
		return b.String()
	}
	if m.fetchErr != nil && len(m.items) == 0 {
		b.WriteString(m.styles.Error.Render("Error: "+m.fetchErr.Error()) + "\n")
		b.WriteString(m.styles.Muted.Render("Press esc to cancel"))
		return b.String()
	}

	b.WriteString(m.input.View() + "\n\n")

	if len(m.filtered) == 0 {
		if m.loadingMore {
			b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render("Searching..."))
		} else {
			b.WriteString(m.styles.Muted.Render("No matches found"))
		}
	} else {
		start := m.scroll
		end := min(start+m.maxVisible, len(m.filtered))
		for i := start; i < end; i++ {
			c := m.filtered[i]
			prefix, style := "  ", m.styles.Body
			if i == m.cursor {
				prefix, style = m.styles.Cursor.Render("> "), m.styles.Selected
			}
			line := prefix + style.Render(c.Title)
			if c.Detail != "" {
				line += m.styles.Muted.Render(" - " + c.Detail)
			}
			b.WriteString(line + "\n")
		}

		var status []string
		switch {
		case m.next != 0:
			status = append(status, fmt.Sprintf("Showing %d-%d of %d+", start+1, end, len(m.items)))
		case len(m.filtered) > m.maxVisible:
			status = append(status, fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(m.filtered)))
		}
		if m.loadingMore {
			status = append(status, m.spinner.View()+" Loading more...")
		}
		if m.fetchErr != nil {
			status = append(status, m.styles.Error.Render("(error loading more)"))
		}
		if len(status) > 0 {
			b.WriteString("\n" + m.styles.Muted.Render(strings.Join(status, " ")))
		}
	}

	b.WriteString("\n\n" + m.styles.Muted.Render("↑↓ navigate • enter select • tab first • esc cancel"))
	return b.String()
}

// Pick shows a picker over the pages served by fetch. It returns nil when
// the user cancels.
func Pick(ctx context.Context, fetch PageFetcher, opts ...PickerOption) (*Choice, error) {
	m := newPickerModel(ctx, fetch, opts...)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	fm := final.(pickerModel) //nolint:errcheck // Run returns the model it was given
	if fm.quitting {
		return nil, nil
	}
	if fm.fetchErr != nil && len(fm.items) == 0 {
		return nil, fm.fetchErr
	}
	return fm.selected, nil
}
