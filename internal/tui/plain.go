package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonyos/webpilot/internal/agent"
	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/tools"
	"github.com/simonyos/webpilot/internal/tui/components"
	"github.com/simonyos/webpilot/internal/tui/theme"
)

// Plain reports session activity as lines of text, for pipes and --plain.
type Plain struct {
	w     io.Writer
	width int
}

// NewPlain creates a line renderer writing to w
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w, width: 100}
}

func (p *Plain) OnState(state agent.State, turn int) {}

func (p *Plain) OnToolUse(call llm.ToolCallRequest) {
	t := theme.Current
	name := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render(call.Name)
	fmt.Fprintf(p.w, "→ %s %s\n", name, components.Truncate(agent.FormatArgs(call), p.width))
}

func (p *Plain) OnToolResult(call llm.ToolCallRequest, result tools.ToolResult) {
	t := theme.Current
	color := t.TextMuted
	if result.IsError {
		color = t.Error
	}
	line := components.Summarize(result.Content, p.width)
	fmt.Fprintln(p.w, lipgloss.NewStyle().Foreground(color).Render("  "+line))
}

var _ agent.EventHandler = (*Plain)(nil)
