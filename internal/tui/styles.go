package tui

import "charm.land/lipgloss/v2"

// Catppuccin Mocha subset. The run view needs a handful of semantic
// colors, not a full theme.
var (
	colorPrimary = lipgloss.Color("#cba6f7") // mauve
	colorSuccess = lipgloss.Color("#a6e3a1") // green
	colorError   = lipgloss.Color("#f38ba8") // red
	colorSkip    = lipgloss.Color("#94e2d5") // teal
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#6c7086")
)

var (
	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorText)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	stylePassed  = lipgloss.NewStyle().Foreground(colorSuccess)
	styleFailed  = lipgloss.NewStyle().Foreground(colorError)
	styleSkipped = lipgloss.NewStyle().Foreground(colorSkip)
	styleRunning = lipgloss.NewStyle().Foreground(colorPrimary)
)
