package boardview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/tui"
)

// Card is one task within a column.
type Card struct {
	ID       string
	Title    string
	Assignee string
	Due      string
	Priority models.Priority
	Done     bool
}

// Column is one status column of the board.
type Column struct {
	Status models.TaskStatus
	Title  string
	Items  []Card
}

// Kanban renders a horizontal multi-column board with a focused card.
type Kanban struct {
	theme   tui.Theme
	columns []Column
	width   int
	height  int

	colIdx  int
	cardIdx int

	// Per-column scroll offsets (first visible card index)
	scrolls []int
}

// NewKanban creates a board widget.
func NewKanban(theme tui.Theme) *Kanban {
	return &Kanban{theme: theme}
}

// SetColumns replaces all columns, keeping focus in range.
func (k *Kanban) SetColumns(cols []Column) {
	k.columns = cols
	if len(k.scrolls) != len(cols) {
		k.scrolls = make([]int, len(cols))
	}
	if k.colIdx >= len(cols) {
		k.colIdx = max(0, len(cols)-1)
	}
	k.clampCardIdx()
}

// SetSize updates dimensions.
func (k *Kanban) SetSize(w, h int) {
	k.width = w
	k.height = h
}

// Columns returns the current columns.
func (k *Kanban) Columns() []Column { return k.columns }

// FocusedColumn returns the index of the focused column.
func (k *Kanban) FocusedColumn() int { return k.colIdx }

// FocusedIndex returns the focused card's index within its column.
func (k *Kanban) FocusedIndex() int { return k.cardIdx }

// FocusedCard returns the focused card, or nil.
func (k *Kanban) FocusedCard() *Card {
	if k.colIdx >= len(k.columns) {
		return nil
	}
	col := k.columns[k.colIdx]
	if k.cardIdx >= len(col.Items) {
		return nil
	}
	card := col.Items[k.cardIdx]
	return &card
}

// Focus moves focus to the card with id, if present.
func (k *Kanban) Focus(id string) bool {
	for ci, col := range k.columns {
		for i, c := range col.Items {
			if c.ID == id {
				k.colIdx, k.cardIdx = ci, i
				return true
			}
		}
	}
	return false
}

// MoveLeft moves focus to the previous column.
func (k *Kanban) MoveLeft() {
	if k.colIdx > 0 {
		k.colIdx--
		k.clampCardIdx()
	}
}

// MoveRight moves focus to the next column.
func (k *Kanban) MoveRight() {
	if k.colIdx < len(k.columns)-1 {
		k.colIdx++
		k.clampCardIdx()
	}
}

// MoveUp moves focus to the previous card in the current column.
func (k *Kanban) MoveUp() {
	if k.cardIdx > 0 {
		k.cardIdx--
	}
}

// MoveDown moves focus to the next card in the current column.
func (k *Kanban) MoveDown() {
	if k.colIdx < len(k.columns) && k.cardIdx < len(k.columns[k.colIdx].Items)-1 {
		k.cardIdx++
	}
}

func (k *Kanban) clampCardIdx() {
	if k.colIdx >= len(k.columns) {
		k.cardIdx = 0
		return
	}
	n := len(k.columns[k.colIdx].Items)
	switch {
	case n == 0:
		k.cardIdx = 0
	case k.cardIdx >= n:
		k.cardIdx = n - 1
	}
}

// minColWidth is the narrowest readable column.
const minColWidth = 20

// View renders the board. When not every column fits at minColWidth, a
// window of columns around the focused one is shown.
func (k *Kanban) View() string {
	if k.width <= 0 || k.height <= 0 || len(k.columns) == 0 {
		return ""
	}

	numCols := len(k.columns)
	maxVisible := min(max(k.width/(minColWidth+1), 1), numCols)
	startCol, endCol := k.visibleRange(numCols, maxVisible)
	visibleCols := endCol - startCol
	dividers := visibleCols - 1
	colWidth := (k.width - dividers) / visibleCols

	var rendered []string
	if startCol > 0 {
		rendered = append(rendered, k.indicator("◂"))
		colWidth = (k.width - dividers - 2) / visibleCols
	}
	colWidth = max(colWidth, 6)

	for i := startCol; i < endCol; i++ {
		rendered = append(rendered, k.renderColumn(k.columns[i], i, colWidth, i == k.colIdx))
		if i < endCol-1 {
			rendered = append(rendered, lipgloss.NewStyle().
				Foreground(k.theme.Border).
				Height(k.height).
				Render(strings.TrimSuffix(strings.Repeat("│\n", k.height), "\n")))
		}
	}
	if endCol < numCols {
		rendered = append(rendered, k.indicator("▸"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (k *Kanban) indicator(s string) string {
	return lipgloss.NewStyle().Foreground(k.theme.Muted).Width(1).Height(k.height).Render(s)
}

// visibleRange returns the [start, end) range of columns to display,
// centered on the focused column.
func (k *Kanban) visibleRange(numCols, maxVisible int) (int, int) {
	if maxVisible >= numCols {
		return 0, numCols
	}
	start := max(k.colIdx-maxVisible/2, 0)
	end := start + maxVisible
	if end > numCols {
		end = numCols
		start = end - maxVisible
	}
	return start, end
}

func (k *Kanban) renderColumn(col Column, colIndex, width int, focused bool) string {
	var b strings.Builder

	headerFg := statusColor(col.Status, k.theme)
	if focused {
		headerFg = k.theme.Primary
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Width(width).Foreground(headerFg).
		Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Items))))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Foreground(k.theme.Border).
		Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	if len(col.Items) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(k.theme.Muted).Width(width).Render("  (empty)"))
	} else {
		b.WriteString(k.renderCardArea(col, colIndex, width, max(k.height-2, 1), focused))
	}

	return lipgloss.NewStyle().Width(width).Height(k.height).Render(b.String())
}

// renderCardArea renders the scrollable card list for a column. Unfocused
// cards take one line; the focused card takes two when it has details.
func (k *Kanban) renderCardArea(col Column, colIndex, width, areaHeight int, focused bool) string {
	for len(k.scrolls) <= colIndex {
		k.scrolls = append(k.scrolls, 0)
	}
	if focused {
		k.adjustScroll(col, colIndex, areaHeight)
	}

	numCards := len(col.Items)
	scrollOff := k.scrolls[colIndex]
	hasAbove := scrollOff > 0
	hasBelow := false

	maxLines := areaHeight
	if hasAbove {
		maxLines--
	}

	var lines []string
	used := 0
	for i := scrollOff; i < numCards; i++ {
		isFocused := focused && i == k.cardIdx
		h := 1
		if isFocused {
			h = focusedCardHeight(col.Items[i])
		}
		if i < numCards-1 && h >= maxLines-used {
			hasBelow = true
			break
		}
		lines = append(lines, k.renderCard(col.Items[i], width, isFocused))
		used += h
		if used >= maxLines {
			hasBelow = i < numCards-1
			break
		}
	}

	var b strings.Builder
	if hasAbove {
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(k.theme.Muted).Align(lipgloss.Center).Render("▲"))
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(lines, "\n"))
	if hasBelow {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(k.theme.Muted).Align(lipgloss.Center).Render("▼"))
	}
	return b.String()
}

// adjustScroll keeps the focused card inside the viewport.
func (k *Kanban) adjustScroll(col Column, colIndex, areaHeight int) {
	if k.cardIdx < 0 || k.cardIdx >= len(col.Items) {
		return
	}
	scroll := k.scrolls[colIndex]
	if k.cardIdx < scroll {
		k.scrolls[colIndex] = k.cardIdx
		return
	}

	used := 0
	for i := scroll; i < len(col.Items); i++ {
		h := 1
		if i == k.cardIdx {
			h = focusedCardHeight(col.Items[i])
		}
		available := areaHeight
		if scroll > 0 {
			available--
		}
		if i < len(col.Items)-1 {
			available--
		}
		used += h
		if i == k.cardIdx {
			if used > available && scroll < k.cardIdx {
				k.scrolls[colIndex] = scroll + 1
				k.adjustScroll(col, colIndex, areaHeight)
			}
			return
		}
	}
}

func (k *Kanban) renderCard(card Card, width int, focused bool) string {
	if !focused {
		style := lipgloss.NewStyle().Width(width)
		if card.Done {
			style = style.Foreground(k.theme.Muted).Strikethrough(true)
		}
		return style.Render("  " + truncate(card.Title, width-2))
	}

	line1 := lipgloss.NewStyle().Foreground(k.theme.Primary).Bold(true).
		Render("▸ " + truncate(card.Title, width-4))
	result := lipgloss.NewStyle().Width(width).Render(line1)
	if detail := detailLine(card); detail != "" {
		line2 := lipgloss.NewStyle().Foreground(k.theme.Muted).Render("  " + truncate(detail, width-2))
		result += "\n" + lipgloss.NewStyle().Width(width).Render(line2)
	}
	return result
}

func focusedCardHeight(card Card) int {
	if detailLine(card) != "" {
		return 2
	}
	return 1
}

// truncate shortens s to maxLen cells, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen <= 3 {
		return ansi.Truncate(s, maxLen, "")
	}
	return ansi.Truncate(s, maxLen, "...")
}

// detailLine assembles the second line of the focused card.
func detailLine(card Card) string {
	var parts []string
	if card.Priority != "" && card.Priority != models.PriorityMedium {
		parts = append(parts, strings.ToLower(string(card.Priority)))
	}
	if card.Assignee != "" {
		parts = append(parts, card.Assignee)
	}
	if card.Due != "" {
		parts = append(parts, "due "+card.Due)
	}
	return strings.Join(parts, " · ")
}

func statusColor(s models.TaskStatus, theme tui.Theme) lipgloss.AdaptiveColor {
	switch s {
	case models.StatusInProgress:
		return theme.Warning
	case models.StatusInReview:
		return theme.Secondary
	case models.StatusDone:
		return theme.Success
	default:
		return theme.Foreground
	}
}
