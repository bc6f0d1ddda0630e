package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonyos/webpilot/internal/tui/theme"
)

// Entry is one line of session activity
type Entry struct {
	ID       string
	ToolName string
	ToolArgs string
	Result   string
	Running  bool
	IsError  bool
	Notice   string // Set for non-tool lines such as errors
}

// Activity is the list of tool executions shown while a session runs
type Activity struct {
	entries []Entry
	width   int
}

// NewActivity creates a new activity component
func NewActivity(width int) *Activity {
	return &Activity{width: width}
}

// SetWidth updates the component width
func (a *Activity) SetWidth(width int) {
	a.width = width
}

// Start adds a running tool entry
func (a *Activity) Start(id, name, args string) {
	a.entries = append(a.entries, Entry{ID: id, ToolName: name, ToolArgs: args, Running: true})
}

// Finish records the result of the running entry with id
func (a *Activity) Finish(id, result string, isError bool) {
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].Running && a.entries[i].ID == id {
			a.entries[i].Running = false
			a.entries[i].Result = result
			a.entries[i].IsError = isError
			return
		}
	}
}

// Notice adds a standalone message line
func (a *Activity) Notice(text string, isError bool) {
	a.entries = append(a.entries, Entry{Notice: text, IsError: isError})
}

// Entries returns the recorded entries
func (a *Activity) Entries() []Entry {
	return a.entries
}

// View renders the activity list
func (a *Activity) View() string {
	t := theme.Current
	var sb strings.Builder

	for _, e := range a.entries {
		if e.Notice != "" {
			color := t.TextMuted
			if e.IsError {
				color = t.Error
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(e.Notice) + "\n")
			continue
		}

		var statusIcon string
		var statusColor lipgloss.Color
		switch {
		case e.Running:
			statusIcon = "◐"
			statusColor = t.Warning
		case e.IsError:
			statusIcon = "✗"
			statusColor = t.Error
		default:
			statusIcon = "✓"
			statusColor = t.Success
		}

		iconStyle := lipgloss.NewStyle().Foreground(statusColor).Bold(true)
		nameStyle := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
		mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

		sb.WriteString("  " + iconStyle.Render(statusIcon) + " " + nameStyle.Render(e.ToolName))
		if e.ToolArgs != "" {
			sb.WriteString(mutedStyle.Render(" → " + Truncate(e.ToolArgs, a.width-len(e.ToolName)-8)))
		}
		sb.WriteString("\n")

		if !e.Running && e.Result != "" {
			sb.WriteString(mutedStyle.Render("    │ "+Summarize(e.Result, a.width-8)) + "\n")
		}
	}
	return sb.String()
}

// Summarize reduces a tool result to one display line: the first non-blank
// line, truncated, with the total size when the result spans several lines.
func Summarize(result string, width int) string {
	first := ""
	for _, line := range strings.Split(result, "\n") {
		if strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
			break
		}
	}
	if strings.Count(strings.TrimSpace(result), "\n") > 0 {
		return Truncate(first, width-14) + fmt.Sprintf(" (%s)", FormatSize(len(result)))
	}
	return Truncate(first, width)
}

// Truncate shortens s to at most width runes, marking the cut.
func Truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// FormatSize renders a byte count for display
func FormatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
