// Package tui holds the terminal building blocks shared by taskhub's
// interactive commands: the color theme, prompts, pickers and spinners.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for styled output.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
}

// DefaultTheme returns the built-in taskhub palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Light: "#4f46e5", Dark: "#a5b4fc"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#5f6368", Dark: "#9aa0a6"},
		Success:    lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#86efac"},
		Warning:    lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fcd34d"},
		Error:      lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#fca5a5"},
		Muted:      lipgloss.AdaptiveColor{Light: "#80868b", Dark: "#6e7681"},
		Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1f1f1f"},
		Foreground: lipgloss.AdaptiveColor{Light: "#202124", Dark: "#e8eaed"},
		Border:     lipgloss.AdaptiveColor{Light: "#dadce0", Dark: "#3c4043"},
	}
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	theme Theme

	Title    lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
}

// NewStyles derives styles from theme.
func NewStyles(theme Theme) *Styles {
	return &Styles{
		theme:   theme,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Body:    lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Cursor:  lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() Theme {
	return s.theme
}

// RenderStatus renders a check or cross followed by message.
func (s *Styles) RenderStatus(ok bool, message string) string {
	if ok {
		return s.Success.Render("✓ " + message)
	}
	return s.Error.Render("✗ " + message)
}
