package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonyos/webpilot/internal/tui/theme"
)

// Status renders the status bar at the bottom
type Status struct {
	Width    int
	Backend  string
	Model    string
	State    string
	Turn     int
	MaxTurns int
}

// NewStatus creates a new status bar
func NewStatus(width int, backend, model string, maxTurns int) *Status {
	return &Status{
		Width:    width,
		Backend:  backend,
		Model:    model,
		MaxTurns: maxTurns,
	}
}

// SetWidth updates the status bar width
func (s *Status) SetWidth(width int) {
	s.Width = width
}

// SetState records the loop state and turn
func (s *Status) SetState(state string, turn int) {
	s.State = state
	s.Turn = turn
}

// View renders the status bar
func (s *Status) View() string {
	t := theme.Current

	hintStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted)
	hint := "Ctrl+C to stop"
	if s.State != "" {
		hint = s.State + " · " + hint
	}
	hint = hintStyle.Render(hint)

	badgeStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Padding(0, 1)
	right := badgeStyle.Render(fmt.Sprintf("%s/%s", s.Backend, s.Model))
	if s.Turn > 0 {
		turnStyle := lipgloss.NewStyle().Foreground(t.Accent)
		right = turnStyle.Render(fmt.Sprintf("turn %d/%d", s.Turn, s.MaxTurns)) + right
	}

	// Calculate spacing
	spacing := s.Width - lipgloss.Width(hint) - lipgloss.Width(right) - 2
	if spacing < 0 {
		spacing = 0
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		hint,
		lipgloss.NewStyle().Width(spacing).Render(""),
		right,
	)
}
