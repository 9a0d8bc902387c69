package domain

import "time"

// Phase is the coarse position of a respondent in the wizard.
type Phase string

const (
	PhaseLoading   Phase = "loading"   // Splash screen
	PhaseActive    Phase = "active"    // A step is displayed
	PhaseRecap     Phase = "recap"     // Cursor == len(steps)
	PhaseSubmitted Phase = "submitted" // Terminal
)

// Direction records whether the last move went forward or backward.
// It only drives the slide direction of frontends.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Outcome classifies a submission attempt.
type Outcome string

const (
	// OutcomeAccepted means the network layer accepted the request.
	// The receiver's own verdict is not observable.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeTransportFailure means the request never completed.
	OutcomeTransportFailure Outcome = "transport_failure"
)

// Submission records the last submission attempt.
type Submission struct {
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}

// State represents the current snapshot of a respondent's progress.
type State struct {
	// SessionID identifies the respondent (browser tab, chat, terminal).
	SessionID string `json:"session_id"`

	Phase     Phase     `json:"phase"`
	Cursor    int       `json:"cursor"`
	Direction Direction `json:"direction"`
	Answers   Answers   `json:"answers"`

	// CreatedAt is when the session was mounted.
	CreatedAt time.Time `json:"created_at"`
	// ReadyAt is when the splash screen ends.
	ReadyAt time.Time `json:"ready_at"`

	// Submission holds the last attempt, if any.
	Submission *Submission `json:"submission,omitempty"`
}

// NewState creates a state on the splash screen.
// splash is the delay before the first step becomes active.
func NewState(sessionID, source string, now time.Time, splash time.Duration) *State {
	return &State{
		SessionID: sessionID,
		Phase:     PhaseLoading,
		Cursor:    0,
		Direction: Forward,
		Answers:   NewAnswers(source),
		CreatedAt: now,
		ReadyAt:   now.Add(splash),
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = s.Answers.Clone()
	if s.Submission != nil {
		sub := *s.Submission
		out.Submission = &sub
	}
	return &out
}

// Steps derives the step list from the current answers.
func (s *State) Steps() []Step {
	return Steps(s.Answers)
}

// CurrentStep returns the displayed step.
// It reports false on the splash, recap and submitted screens.
func (s *State) CurrentStep() (Step, bool) {
	if s.Phase != PhaseActive {
		return Step{}, false
	}
	steps := s.Steps()
	if s.Cursor < 0 || s.Cursor >= len(steps) {
		return Step{}, false
	}
	return steps[s.Cursor], true
}

// Source returns the acquisition channel recorded at startup.
func (s *State) Source() string {
	return s.Answers.Get(FieldSource)
}

// Terminated reports whether the form has been submitted successfully.
func (s *State) Terminated() bool {
	return s.Phase == PhaseSubmitted
}
