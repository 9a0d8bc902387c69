package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
)

// ErrNoSubmitter is returned when a submission is attempted without a configured endpoint.
var ErrNoSubmitter = errors.New("no submitter configured")

// Deliverer performs submissions and records their outcome on the state.
// It is shared by the Controller and the session-based frontends.
type Deliverer struct {
	Submitter ports.Submitter
	Hooks     domain.LifecycleHooks
	Logger    *slog.Logger
	Now       func() time.Time
}

// Deliver sends the answers of s in a single request.
//
// It returns the state with the attempt recorded and the notice to show.
// A transport failure yields the failure notice, keeps the state on the recap
// and returns the error. Any other outcome yields the success notice and a
// submitted state. When s is not on the recap, s is returned unchanged with
// the reason and an empty notice.
func (d Deliverer) Deliver(ctx context.Context, s *domain.State) (*domain.State, domain.Notice, error) {
	if err := domain.CanSubmit(s); err != nil {
		return s, domain.Notice{}, err
	}
	if d.Submitter == nil {
		return s, domain.Notice{}, ErrNoSubmitter
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	start := now()
	err := d.Submitter.Submit(ctx, s.Answers.Clone())
	elapsed := now().Sub(start)

	sub := domain.Submission{Outcome: domain.OutcomeAccepted, At: now()}
	if err != nil {
		sub.Outcome = domain.OutcomeTransportFailure
		sub.Error = err.Error()
		logger.Error("form submission failed",
			"session_id", s.SessionID,
			"duration", elapsed,
			"err", err,
		)
	} else {
		logger.Info("form submitted",
			"session_id", s.SessionID,
			"source", s.Source(),
			"duration", elapsed,
		)
	}

	next := domain.RecordSubmission(s, sub)
	d.Hooks.Submitted(ctx, next, elapsed)
	if err != nil {
		return next, domain.NoticeFor(sub), fmt.Errorf("submit session %s: %w", s.SessionID, err)
	}
	return next, domain.NoticeFor(sub), nil
}
