package wizard

import (
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
)

// View is the presentation model of a state, shared by the JSON frontends.
type View struct {
	SessionID string           `json:"session_id"`
	Phase     domain.Phase     `json:"phase"`
	Cursor    int              `json:"cursor"`
	Direction domain.Direction `json:"direction"`
	Progress  domain.Progress  `json:"progress"`

	// Step is set while a question is displayed.
	Step *StepView `json:"step,omitempty"`
	// Recap is set on the review and confirmation screens.
	Recap     []domain.RecapLine `json:"recap,omitempty"`
	CanSubmit bool               `json:"can_submit"`

	Source      string `json:"source"`
	SourceLabel string `json:"source_label,omitempty"`

	// ReadyInMs is the remaining splash time.
	ReadyInMs int64 `json:"ready_in_ms,omitempty"`
	// AutoAdvanceMs tells clients how long to wait after a selection before advancing.
	AutoAdvanceMs int64 `json:"auto_advance_ms"`

	Notice *domain.Notice `json:"notice,omitempty"`
}

// StepView is the displayed question with its current answer.
type StepView struct {
	domain.Step
	Value      string `json:"value"`
	CanAdvance bool   `json:"can_advance"`
	CanRetreat bool   `json:"can_retreat"`
}

// NewView builds the presentation model of s at time now.
func NewView(s *domain.State, now time.Time, selectDelay time.Duration) View {
	v := View{
		SessionID:     s.SessionID,
		Phase:         s.Phase,
		Cursor:        s.Cursor,
		Direction:     s.Direction,
		Progress:      domain.ProgressOf(s),
		Source:        s.Source(),
		SourceLabel:   SourceLabel(s.Source()),
		AutoAdvanceMs: selectDelay.Milliseconds(),
	}

	switch s.Phase {
	case domain.PhaseLoading:
		if remaining := s.ReadyAt.Sub(now); remaining > 0 {
			v.ReadyInMs = remaining.Milliseconds()
		}
	case domain.PhaseActive:
		if step, ok := s.CurrentStep(); ok {
			value := s.Answers.Get(step.ID)
			v.Step = &StepView{
				Step:       step,
				Value:      value,
				CanAdvance: value != "",
				CanRetreat: s.Cursor > 0,
			}
		}
	case domain.PhaseRecap, domain.PhaseSubmitted:
		v.Recap = domain.Recap(s)
		v.CanSubmit = s.Phase == domain.PhaseRecap
	}

	if s.Submission != nil {
		notice := domain.NoticeFor(*s.Submission)
		v.Notice = &notice
	}
	return v
}

// SourceLabel is the acquisition indicator shown to respondents, empty for direct traffic.
func SourceLabel(source string) string {
	if source == "" || source == domain.DefaultSource {
		return ""
	}
	return "Source: " + source
}
