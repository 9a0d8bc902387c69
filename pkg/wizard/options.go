package wizard

import (
	"log/slog"
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
)

const (
	// DefaultSplashDelay is how long the loading screen stays up after Mount.
	DefaultSplashDelay = 2500 * time.Millisecond
	// DefaultSelectDelay is the pause between picking an option and moving on.
	DefaultSelectDelay = 300 * time.Millisecond
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithSplashDelay sets the loading screen duration. Zero activates on Mount.
func WithSplashDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.splash = d
	}
}

// WithSelectDelay sets the auto-advance delay after Select. Zero advances immediately.
func WithSelectDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.selectDelay = d
	}
}

// WithSubmitter sets the endpoint adapter used by Submit.
func WithSubmitter(s ports.Submitter) Option {
	return func(c *Controller) {
		c.submitter = s
	}
}

// WithDefaultSource sets the source recorded when the query carries none.
func WithDefaultSource(source string) Option {
	return func(c *Controller) {
		c.defaultSource = source
	}
}

// WithSessionID sets the identifier reported in logs and events.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}
