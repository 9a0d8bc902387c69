package tui

import (
	"github.com/charmbracelet/glamour"

	"github.com/nodus-reseau/leadform/pkg/runner"
)

// NewRenderer returns a markdown renderer for the line runner.
// The style is detected from the terminal background. Without a usable
// terminal the markdown is returned unchanged.
func NewRenderer(width int) runner.ContentRenderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle(), glamour.WithEmoji()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
