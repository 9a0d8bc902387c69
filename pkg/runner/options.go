package runner

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// DefaultInputBufferSize is the default number of lines to buffer for input handlers.
const DefaultInputBufferSize = 64

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithRenderer configures the content renderer of the default TextHandler.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithQuery sets the landing query the acquisition source is read from.
func WithQuery(query url.Values) Option {
	return func(r *Runner) {
		r.Query = query
	}
}

// WithControllerOptions configures the wizard driven by the Runner.
func WithControllerOptions(opts ...wizard.Option) Option {
	return func(r *Runner) {
		r.ControllerOptions = append(r.ControllerOptions, opts...)
	}
}

// WithSelectDelay sets the pause between a selection and the next screen.
// It overrides any select delay passed through WithControllerOptions.
func WithSelectDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.selectDelay = d
	}
}
