package output

import (
	"strings"

	"charm.land/glamour/v2"
)

// RenderMarkdown renders markdown for terminal display, capped at 120
// columns for readability. Falls back to the raw text if rendering
// fails.
func RenderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 80
	}
	if width > 120 {
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSuffix(rendered, "\n")
}
