package wizard

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
)

var (
	// ErrClosed is returned for commands sent after Close.
	ErrClosed = errors.New("wizard closed")
	// ErrSubmitInFlight is returned while a submission is waiting for the endpoint.
	ErrSubmitInFlight = errors.New("submission in progress")
)

// Controller is the stateful wizard of a single respondent.
// All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state *domain.State

	// Generation tokens of the pending timers.
	splashGen  uint64
	advanceGen uint64

	splashTimer  Timer
	advanceTimer Timer

	closed     bool
	submitting bool
	changes    chan *domain.State

	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	scheduler     Scheduler
	submitter     ports.Submitter
	splash        time.Duration
	selectDelay   time.Duration
	defaultSource string
	sessionID     string
	now           func() time.Time
}

// New creates a controller. It stays on the splash screen until Mount is called.
func New(opts ...Option) *Controller {
	c := &Controller{
		changes:       make(chan *domain.State, 1),
		logger:        logging.NewNop(),
		scheduler:     SystemScheduler{},
		splash:        DefaultSplashDelay,
		selectDelay:   DefaultSelectDelay,
		defaultSource: domain.DefaultSource,
		sessionID:     "local",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = domain.NewState(c.sessionID, c.defaultSource, c.now(), c.splash)
	return c
}

// Mount records the acquisition source from query and starts the splash timer.
// Calling Mount again restarts the form from scratch.
func (c *Controller) Mount(ctx context.Context, query url.Values) *domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.state.Snapshot()
	}

	c.cancelAdvance()
	c.stopSplash()

	source := domain.SourceFromQuery(query, c.defaultSource)
	c.state = domain.NewState(c.sessionID, source, c.now(), c.splash)
	c.submitting = false
	c.logger.Info("wizard mounted", "session_id", c.sessionID, "source", source)
	c.hooks.SessionStarted(ctx, c.state)
	c.publish()

	if c.splash <= 0 {
		c.commit(domain.Activate(c.state))
		return c.state.Snapshot()
	}
	gen := c.splashGen
	c.splashTimer = c.scheduler.AfterFunc(c.splash, func() { c.endSplash(gen) })
	return c.state.Snapshot()
}

// SetAnswer overwrites the answer of the displayed step.
func (c *Controller) SetAnswer(value string) error {
	return c.apply(func(s *domain.State) (*domain.State, error) {
		return domain.AnswerCurrent(s, value)
	})
}

// Advance moves forward when the displayed step is answered.
// It reports whether the cursor moved.
func (c *Controller) Advance() bool {
	moved := false
	_ = c.apply(func(s *domain.State) (*domain.State, error) {
		var next *domain.State
		next, moved = domain.Advance(s)
		return next, nil
	})
	return moved
}

// Retreat moves back one step. It reports whether the cursor moved.
func (c *Controller) Retreat() bool {
	moved := false
	_ = c.apply(func(s *domain.State) (*domain.State, error) {
		var next *domain.State
		next, moved = domain.Retreat(s)
		return next, nil
	})
	return moved
}

// JumpTo moves the cursor to index without checking intermediate answers.
func (c *Controller) JumpTo(index int) error {
	return c.apply(func(s *domain.State) (*domain.State, error) {
		return domain.JumpTo(s, index)
	})
}

// Select records an option of the displayed choice step and advances after the select delay.
func (c *Controller) Select(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.cancelAdvance()

	next, err := domain.Select(c.state, value)
	if err != nil {
		return err
	}
	c.commit(next)

	if c.selectDelay <= 0 {
		if advanced, moved := domain.Advance(c.state); moved {
			c.commit(advanced)
		}
		return nil
	}
	gen := c.advanceGen
	c.advanceTimer = c.scheduler.AfterFunc(c.selectDelay, func() { c.autoAdvance(gen) })
	return nil
}

// Submit sends the answers from the recap screen in a single request.
// The returned notice is empty when the submission was refused before any request.
func (c *Controller) Submit(ctx context.Context) (domain.Notice, error) {
	c.mu.Lock()
	if err := c.checkMutable(); err != nil {
		c.mu.Unlock()
		return domain.Notice{}, err
	}
	if err := domain.CanSubmit(c.state); err != nil {
		c.mu.Unlock()
		return domain.Notice{}, err
	}
	c.cancelAdvance()
	c.submitting = true
	mountGen := c.splashGen
	snapshot := c.state.Snapshot()
	deliverer := Deliverer{
		Submitter: c.submitter,
		Hooks:     c.hooks,
		Logger:    c.logger,
		Now:       c.now,
	}
	c.mu.Unlock()

	// The request runs without the lock so State and Changes stay responsive.
	next, notice, err := deliverer.Deliver(ctx, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.splashGen != mountGen {
		// Remounted or closed while waiting: the outcome belongs to a discarded form.
		return notice, err
	}
	c.submitting = false
	c.commit(next)
	return notice, err
}

// State returns a copy of the current state.
func (c *Controller) State() *domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Changes delivers a copy of the state after every change.
// Slow readers only see the latest state. The channel is closed by Close.
func (c *Controller) Changes() <-chan *domain.State {
	return c.changes
}

// Close cancels pending timers and closes the Changes channel.
// Timer callbacks that are already running become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelAdvance()
	c.stopSplash()
	close(c.changes)
}

func (c *Controller) apply(fn func(*domain.State) (*domain.State, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkMutable(); err != nil {
		return err
	}
	c.cancelAdvance()

	next, err := fn(c.state)
	if err != nil {
		return err
	}
	if next != c.state {
		c.commit(next)
	}
	return nil
}

func (c *Controller) checkMutable() error {
	if c.closed {
		return ErrClosed
	}
	if c.submitting {
		return ErrSubmitInFlight
	}
	return nil
}

func (c *Controller) endSplash(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.splashGen {
		return
	}
	c.splashTimer = nil
	c.commit(domain.Activate(c.state))
}

func (c *Controller) autoAdvance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.submitting || gen != c.advanceGen {
		return
	}
	c.advanceTimer = nil
	if next, moved := domain.Advance(c.state); moved {
		c.commit(next)
	}
}

// cancelAdvance invalidates and stops any pending auto-advance.
func (c *Controller) cancelAdvance() {
	c.advanceGen++
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
}

func (c *Controller) stopSplash() {
	c.splashGen++
	if c.splashTimer != nil {
		c.splashTimer.Stop()
		c.splashTimer = nil
	}
}

// commit replaces the state, fires hooks and notifies readers. Caller holds mu.
func (c *Controller) commit(next *domain.State) {
	before := c.state
	c.state = next
	c.hooks.Transitioned(context.Background(), before, next)
	c.logger.Debug("wizard state changed",
		"session_id", c.sessionID,
		"phase", next.Phase,
		"cursor", next.Cursor,
		"answers", next.Answers,
	)
	c.publish()
}

// publish pushes the current state, replacing an unread one. Caller holds mu.
func (c *Controller) publish() {
	if c.closed {
		return
	}
	snapshot := c.state.Snapshot()
	select {
	case c.changes <- snapshot:
		return
	default:
	}
	select {
	case <-c.changes:
	default:
	}
	select {
	case c.changes <- snapshot:
	default:
	}
}
