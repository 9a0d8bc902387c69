package runner

import (
	"context"

	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// IOHandler defines the strategy for interacting with the respondent.
// This allows switching between Text (CLI) and JSON (Structured) modes.
// Implementations must tolerate Output and SystemOutput being called while
// Input is blocked.
type IOHandler interface {
	// Output presents a screen of the form.
	Output(ctx context.Context, view wizard.View) error

	// Input reads one line from the respondent.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (rejected command, interruption).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms the markdown of a screen before it is printed.
// This allows terminal rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
