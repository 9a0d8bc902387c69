package wizard

import (
	"context"
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/session"
)

// Sessions applies wizard commands to stored sessions.
// It is the entry point of the multi-respondent frontends (HTTP, MCP, chat):
// no timer is kept per session, the splash ends on the first read after ReadyAt
// and the post-selection delay is left to the client.
type Sessions struct {
	manager     *session.Manager
	deliverer   Deliverer
	selectDelay time.Duration
	now         func() time.Time
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithSessionsClock overrides the clock used to compute the splash countdown.
// Use the same clock as the session.Manager.
func WithSessionsClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
	}
}

// WithClientSelectDelay sets the auto-advance hint reported in views.
func WithClientSelectDelay(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		s.selectDelay = d
	}
}

// NewSessions creates the command layer over manager. Submissions go through d.
func NewSessions(manager *session.Manager, d Deliverer, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		manager:     manager,
		deliverer:   d,
		selectDelay: DefaultSelectDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new session (or restarts an existing one) on the splash screen.
func (s *Sessions) Start(ctx context.Context, id, source string) (View, error) {
	state, err := s.manager.Start(ctx, id, source)
	if err != nil {
		return View{}, err
	}
	return s.view(state), nil
}

// View returns the current screen of a session.
func (s *Sessions) View(ctx context.Context, id string) (View, error) {
	state, err := s.manager.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(state), nil
}

// Answer overwrites the answer of the displayed step.
func (s *Sessions) Answer(ctx context.Context, id, value string) (View, error) {
	return s.update(ctx, id, func(st *domain.State) (*domain.State, error) {
		return domain.AnswerCurrent(st, value)
	})
}

// Advance moves forward when the displayed step is answered.
func (s *Sessions) Advance(ctx context.Context, id string) (View, error) {
	return s.update(ctx, id, func(st *domain.State) (*domain.State, error) {
		next, _ := domain.Advance(st)
		return next, nil
	})
}

// Retreat moves back one step.
func (s *Sessions) Retreat(ctx context.Context, id string) (View, error) {
	return s.update(ctx, id, func(st *domain.State) (*domain.State, error) {
		next, _ := domain.Retreat(st)
		return next, nil
	})
}

// JumpTo moves the cursor to index, as the recap edit links do.
func (s *Sessions) JumpTo(ctx context.Context, id string, index int) (View, error) {
	return s.update(ctx, id, func(st *domain.State) (*domain.State, error) {
		return domain.JumpTo(st, index)
	})
}

// Select records an option of the displayed choice step.
// With advance set, the cursor moves on in the same command; otherwise the
// client advances after View.AutoAdvanceMs.
func (s *Sessions) Select(ctx context.Context, id, value string, advance bool) (View, error) {
	return s.update(ctx, id, func(st *domain.State) (*domain.State, error) {
		next, err := domain.Select(st, value)
		if err != nil || !advance {
			return next, err
		}
		next, _ = domain.Advance(next)
		return next, nil
	})
}

// Submit delivers the answers from the recap. The view carries the notice.
// A transport failure is returned as an error alongside the failure notice.
func (s *Sessions) Submit(ctx context.Context, id string) (View, domain.Notice, error) {
	var notice domain.Notice
	state, err := s.manager.Update(ctx, id, func(ctx context.Context, st *domain.State) (*domain.State, error) {
		next, n, err := s.deliverer.Deliver(ctx, st)
		notice = n
		return next, err
	})
	if state == nil {
		return View{}, notice, err
	}
	return s.view(state), notice, err
}

// Delete forgets a session.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	return s.manager.Delete(ctx, id)
}

func (s *Sessions) update(ctx context.Context, id string, fn func(*domain.State) (*domain.State, error)) (View, error) {
	state, err := s.manager.Update(ctx, id, func(_ context.Context, st *domain.State) (*domain.State, error) {
		return fn(st)
	})
	if state == nil {
		return View{}, err
	}
	return s.view(state), err
}

func (s *Sessions) view(state *domain.State) View {
	return NewView(state, s.now(), s.selectDelay)
}
