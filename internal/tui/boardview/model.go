// Package boardview is the interactive kanban board for one project.
// Moves are applied optimistically through the project's board pool and
// reconciled against the gateway in the background.
package boardview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/data"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

const pollTag = "board"

// keyMap defines the board keybindings.
type keyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	Move      key.Binding
	RaiseCard key.Binding
	LowerCard key.Binding
	Refresh   key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "prev column")),
		Right:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "next column")),
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "prev task")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "next task")),
		Move:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
		RaiseCard: key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "raise")),
		LowerCard: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "lower")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Option configures a Model.
type Option func(*Model)

// WithTheme overrides the resolved theme.
func WithTheme(theme tui.Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithPollInterval sets the focused refresh interval. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(m *Model) { m.pollEvery = d }
}

// WithTitle sets the header title, usually the project name.
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// Model is the bubbletea model for the board.
type Model struct {
	hub       *data.Hub
	projectID string
	pool      *data.MutatingPool[board.Board]
	ctx       context.Context
	theme     tui.Theme
	title     string
	keys      keyMap

	kanban        *Kanban
	width, height int

	spinner spinner.Model
	loading bool

	poller    *data.Poller
	pollEvery time.Duration
	polling   bool
	lastSig   string

	status    string
	statusErr bool

	// Move mode
	moving     bool
	moveCard   string
	moveSource int
	moveTarget int
}

// New creates a board model for projectID.
func New(hub *data.Hub, projectID string, opts ...Option) *Model {
	m := &Model{
		hub:       hub,
		projectID: projectID,
		pool:      hub.Board(projectID),
		ctx:       hub.EnsureProject(projectID).Context(),
		theme:     tui.ResolveTheme(),
		title:     "Board",
		keys:      defaultKeyMap(),
		pollEvery: 30 * time.Second,
		poller:    data.NewPoller(),
		loading:   true,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.kanban = NewKanban(m.theme)
	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = lipgloss.NewStyle().Foreground(m.theme.Primary)

	if m.pollEvery > 0 {
		m.poller.Add(data.PollConfig{
			Tag:        pollTag,
			Base:       m.pollEvery,
			Background: 4 * m.pollEvery,
			Max:        10 * m.pollEvery,
		})
	}
	return m
}

// Run starts the board full-screen until the user quits or ctx is done.
func Run(ctx context.Context, hub *data.Hub, projectID string, opts ...Option) error {
	p := tea.NewProgram(New(hub, projectID, opts...),
		tea.WithAltScreen(), tea.WithContext(ctx), tea.WithReportFocus())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.pollEvery > 0 {
		cmds = append(cmds, m.poller.Start())
	}
	snap := m.pool.Get()
	if snap.Usable() {
		m.sync()
		m.loading = false
		if snap.Fresh() {
			return tea.Batch(cmds...)
		}
	}
	cmds = append(cmds, m.spinner.Tick, m.pool.FetchIfStale(m.ctx))
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.kanban.SetSize(m.width, m.boardHeight())
		return m, nil

	case tea.FocusMsg:
		m.poller.SetFocused(pollTag, true)
		return m, nil

	case tea.BlurMsg:
		m.poller.SetFocused(pollTag, false)
		return m, nil

	case data.PoolUpdatedMsg:
		if msg.Key != m.pool.Key() {
			return m, nil
		}
		snap := m.pool.Get()
		if snap.Usable() {
			changed := m.sync()
			m.loading = false
			if m.polling {
				if changed {
					m.poller.RecordHit(pollTag)
				} else {
					m.poller.RecordMiss(pollTag)
				}
			}
		}
		m.polling = false
		if snap.State == data.StateError {
			m.loading = false
			m.setError(snap.Err)
		}
		return m, nil

	case data.MutationErrorMsg:
		if msg.Key != m.pool.Key() {
			return m, nil
		}
		// The pool already rolled back; show the gateway's board.
		if m.pool.Get().Usable() {
			m.sync()
		}
		m.setError(msg.Err)
		return m, nil

	case data.PollMsg:
		if msg.Tag != pollTag {
			return m, nil
		}
		next := m.poller.Schedule(pollTag)
		if m.pool.Pending() > 0 || m.moving {
			return m, next
		}
		m.polling = true
		return m, tea.Batch(next, m.pool.Fetch(m.ctx))

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (!m.moving || msg.String() == "ctrl+c") {
			return m, tea.Quit
		}
		if m.loading {
			return m, nil
		}
		if m.moving {
			return m, m.handleMoveKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.kanban.MoveLeft()
	case key.Matches(msg, m.keys.Right):
		m.kanban.MoveRight()
	case key.Matches(msg, m.keys.Up):
		m.kanban.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.kanban.MoveDown()
	case key.Matches(msg, m.keys.RaiseCard):
		return m.reorder(-1)
	case key.Matches(msg, m.keys.LowerCard):
		return m.reorder(1)
	case key.Matches(msg, m.keys.Move):
		card := m.kanban.FocusedCard()
		if card == nil {
			return nil
		}
		m.moving = true
		m.moveCard = card.ID
		m.moveSource = m.kanban.FocusedColumn()
		m.moveTarget = m.moveSource
		m.setStatus("Move: h/l to pick a column, enter to confirm, esc to cancel")
	case key.Matches(msg, m.keys.Refresh):
		m.pool.Invalidate()
		m.status = ""
		return m.pool.Fetch(m.ctx)
	case key.Matches(msg, m.keys.Cancel):
		if m.statusErr {
			m.pool.Dismiss()
			m.status, m.statusErr = "", false
		}
	}
	return nil
}

func (m *Model) handleMoveKey(msg tea.KeyMsg) tea.Cmd {
	cols := m.kanban.Columns()
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.moveTarget > 0 {
			m.moveTarget--
		}
	case key.Matches(msg, m.keys.Right):
		if m.moveTarget < len(cols)-1 {
			m.moveTarget++
		}
	case key.Matches(msg, m.keys.Confirm):
		m.moving = false
		m.status = ""
		if m.moveTarget == m.moveSource || m.moveTarget >= len(cols) {
			return nil
		}
		target := cols[m.moveTarget]
		return m.apply(m.moveCard, target.Status, len(target.Items))
	case key.Matches(msg, m.keys.Cancel):
		m.moving = false
		m.status = ""
	}
	return nil
}

// reorder shifts the focused card by delta within its column.
func (m *Model) reorder(delta int) tea.Cmd {
	card := m.kanban.FocusedCard()
	if card == nil {
		return nil
	}
	col := m.kanban.Columns()[m.kanban.FocusedColumn()]
	to := m.kanban.FocusedIndex() + delta
	if to < 0 || to >= len(col.Items) {
		return nil
	}
	return m.apply(card.ID, col.Status, to)
}

// apply moves a task optimistically. The board re-renders before the
// gateway answers.
func (m *Model) apply(taskID string, to models.TaskStatus, position int) tea.Cmd {
	cmd := m.pool.Apply(m.ctx, data.TaskMoveMutation{
		TaskID:   taskID,
		To:       to,
		Position: position,
		Client:   m.hub.Client(),
	})
	m.sync()
	m.kanban.Focus(taskID)
	return cmd
}

// sync rebuilds the widget columns from the pool and reports whether the
// board differs from the last one shown.
func (m *Model) sync() bool {
	b := m.pool.Get().Data
	cols := make([]Column, 0, len(models.TaskStatuses))
	var sig strings.Builder
	for _, st := range models.TaskStatuses {
		tasks := b.Column(st)
		items := make([]Card, 0, len(tasks))
		for _, t := range tasks {
			c := Card{ID: t.ID, Title: t.Title, Assignee: t.Assignee, Priority: t.Priority, Done: st == models.StatusDone}
			if t.DueDate != nil {
				c.Due = t.DueDate.Format("Jan 2")
			}
			items = append(items, c)
			fmt.Fprintf(&sig, "%s:%s:%d:%s;", t.ID, st, t.Position, t.Title)
		}
		cols = append(cols, Column{Status: st, Title: st.Label(), Items: items})
	}
	m.kanban.SetColumns(cols)

	changed := sig.String() != m.lastSig
	m.lastSig = sig.String()
	return changed
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	m.status, m.statusErr = data.MessageOf(err), true
}

func (m *Model) boardHeight() int {
	return max(m.height-2, 1) // header + status line
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.spinner.View() + " Loading board...")
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.kanban.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *Model) header() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).Render(m.title)
	if !m.moving {
		if m.pollEvery > 0 {
			title += lipgloss.NewStyle().Foreground(m.theme.Muted).Render(" · refresh " + m.poller.Interval(pollTag).String())
		}
		return title
	}

	var h strings.Builder
	h.WriteString(lipgloss.NewStyle().Bold(true).Foreground(m.theme.Warning).Render("MOVE"))
	h.WriteString(lipgloss.NewStyle().Foreground(m.theme.Muted).Render(" > "))
	for i, col := range m.kanban.Columns() {
		style := lipgloss.NewStyle().Foreground(m.theme.Muted)
		if i == m.moveTarget {
			style = lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).Underline(true)
		}
		if i == m.moveSource {
			style = style.Italic(true)
		}
		h.WriteString(style.Render(col.Title))
		if i < len(m.kanban.Columns())-1 {
			h.WriteString("  ")
		}
	}
	return h.String()
}

func (m *Model) statusLine() string {
	switch {
	case m.status != "" && m.statusErr:
		return lipgloss.NewStyle().Foreground(m.theme.Error).Render(m.status)
	case m.status != "":
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(m.status)
	case m.pool.Pending() > 0:
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Saving...")
	}
	help := []key.Binding{m.keys.Left, m.keys.Down, m.keys.Move, m.keys.LowerCard, m.keys.Refresh, m.keys.Quit}
	parts := make([]string, 0, len(help))
	for _, k := range help {
		parts = append(parts, k.Help().Key+" "+k.Help().Desc)
	}
	return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(parts, " · "))
}
