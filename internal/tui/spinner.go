package tui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// spinnerModel animates while a job runs and prints its outcome.
type spinnerModel struct {
	spinner spinner.Model
	styles  *Styles
	message string

	done     bool
	result   string
	err      error
	canceled bool
}

type jobDoneMsg struct {
	result string
	err    error
}

func newSpinnerModel(message string, theme Theme) spinnerModel {
	styles := NewStyles(theme)
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = styles.Cursor
	return spinnerModel{spinner: s, styles: styles, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			return m, tea.Quit
		}
	case jobDoneMsg:
		m.done = true
		m.result, m.err = msg.result, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	switch {
	case m.canceled:
		return ""
	case m.done && m.err != nil:
		return m.styles.RenderStatus(false, m.err.Error()) + "\n"
	case m.done:
		return m.styles.RenderStatus(true, m.result) + "\n"
	}
	return m.spinner.View() + " " + m.message + "\n"
}

// Spin runs job while showing message next to a spinner on w. Ctrl+C
// cancels the job's context and Spin returns context.Canceled.
func Spin(ctx context.Context, w io.Writer, message string, job func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(message, ResolveTheme()),
		tea.WithContext(ctx), tea.WithOutput(w))
	go func() {
		result, err := job(ctx)
		p.Send(jobDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return "", err
	}
	fm := final.(spinnerModel) //nolint:errcheck // Run returns the model it was given
	if fm.canceled {
		return "", context.Canceled
	}
	return fm.result, fm.err
}
