package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventStepEnter    EventType = "step_enter"
	EventAnswer       EventType = "answer"
	EventSubmit       EventType = "submit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent is emitted when a respondent mounts the form.
type SessionEvent struct {
	EventBase
	Source string `json:"source"`
}

// StepEvent represents the arrival on a screen (a step or the recap).
type StepEvent struct {
	EventBase
	Index     int       `json:"index"`
	Field     Field     `json:"field,omitempty"` // Empty on the recap
	Phase     Phase     `json:"phase"`
	Direction Direction `json:"direction"`
}

// AnswerEvent represents an answer being recorded. The value is not carried.
type AnswerEvent struct {
	EventBase
	Field Field `json:"field"`
	Empty bool  `json:"empty"`
}

// SubmitEvent represents a submission attempt.
type SubmitEvent struct {
	EventBase
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnStepEnter    func(context.Context, *StepEvent)
	OnAnswer       func(context.Context, *AnswerEvent)
	OnSubmit       func(context.Context, *SubmitEvent)
}

// SessionStarted fires OnSessionStart for s.
func (h LifecycleHooks) SessionStarted(ctx context.Context, s *State) {
	if h.OnSessionStart == nil {
		return
	}
	h.OnSessionStart(ctx, &SessionEvent{
		EventBase: base(EventSessionStart, s.SessionID),
		Source:    s.Source(),
	})
}

// Transitioned compares two states and fires the matching hooks:
// OnAnswer for every changed field, OnStepEnter when the screen changed.
func (h LifecycleHooks) Transitioned(ctx context.Context, before, after *State) {
	if before == nil || after == nil {
		return
	}
	if h.OnAnswer != nil {
		for _, f := range Fields {
			if before.Answers.Get(f) != after.Answers.Get(f) {
				h.OnAnswer(ctx, &AnswerEvent{
					EventBase: base(EventAnswer, after.SessionID),
					Field:     f,
					Empty:     after.Answers.Get(f) == "",
				})
			}
		}
	}
	if h.OnStepEnter == nil {
		return
	}
	if before.Cursor == after.Cursor && before.Phase == after.Phase {
		return
	}
	if after.Phase != PhaseActive && after.Phase != PhaseRecap {
		return
	}
	ev := &StepEvent{
		EventBase: base(EventStepEnter, after.SessionID),
		Index:     after.Cursor,
		Phase:     after.Phase,
		Direction: after.Direction,
	}
	if step, ok := after.CurrentStep(); ok {
		ev.Field = step.ID
	}
	h.OnStepEnter(ctx, ev)
}

// Submitted fires OnSubmit for a recorded submission.
func (h LifecycleHooks) Submitted(ctx context.Context, s *State, d time.Duration) {
	if h.OnSubmit == nil || s.Submission == nil {
		return
	}
	h.OnSubmit(ctx, &SubmitEvent{
		EventBase: base(EventSubmit, s.SessionID),
		Outcome:   s.Submission.Outcome,
		Duration:  d,
		Error:     s.Submission.Error,
	})
}

func base(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}
