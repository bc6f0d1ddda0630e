package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors for the TUI
type Theme struct {
	// Primary colors
	Primary lipgloss.Color
	Accent  lipgloss.Color

	// Text colors
	Text      lipgloss.Color
	TextMuted lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Border lipgloss.Color
}

// Current is the active theme
var Current = DefaultTheme()

// DefaultTheme returns the default webpilot theme
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#7AA2F7"), // Link blue
		Accent:  lipgloss.Color("#D2A679"), // Warm sandy accent

		Text:      lipgloss.Color("#F0F0F0"),
		TextMuted: lipgloss.Color("#888888"),

		Success: lipgloss.Color("#10B981"), // Green
		Warning: lipgloss.Color("#F59E0B"), // Amber
		Error:   lipgloss.Color("#EF4444"), // Red

		Border: lipgloss.Color("#3d3d3d"),
	}
}
