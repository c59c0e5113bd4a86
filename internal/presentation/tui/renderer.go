package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a markdown renderer wrapped to the given width.
// Widths at or below zero fall back to 100 columns.
func NewRenderer(width int) func(string) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)

	return func(markdown string) (string, error) {
		if err != nil {
			// Renderer construction failed; hand the source back untouched.
			return markdown, nil
		}
		return r.Render(markdown)
	}
}
