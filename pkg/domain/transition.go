package domain

import (
	"fmt"
	"time"
)

// Activate ends the splash screen and shows the first step.
// States that are not loading are returned unchanged (as a copy).
func Activate(s *State) *State {
	next := s.Snapshot()
	if next.Phase != PhaseLoading {
		return next
	}
	next.Phase = PhaseActive
	next.Cursor = 0
	next.Direction = Forward
	return next
}

// ActivateIfReady activates a loading state once now has reached ReadyAt.
// It reports whether the phase changed.
func ActivateIfReady(s *State, now time.Time) (*State, bool) {
	if s.Phase != PhaseLoading || now.Before(s.ReadyAt) {
		return s, false
	}
	return Activate(s), true
}

// SetAnswer overwrites the answer of field with value.
// The field is used directly as the answer key.
//
// Setting typePersonne is the one write that touches a second field: when the new
// persona changes the shape of the class step (choice, free text or absent), the
// class answer is cleared so a grade picked as a pupil is never sent for a parent
// or a teacher. Personas sharing a shape keep the class answer.
func SetAnswer(s *State, field Field, value string) (*State, error) {
	if err := checkEditable(s); err != nil {
		return s, err
	}
	if !field.Valid() {
		return s, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	next := s.Snapshot()
	answers := next.Answers.With(field, value)
	if field == FieldTypePersonne {
		before := classShape(Persona(s.Answers.Get(FieldTypePersonne)))
		after := classShape(Persona(value))
		if before != after {
			answers[FieldClasse] = ""
		}
	}
	next.Answers = answers
	// The step list may have grown or shrunk under the cursor.
	settle(next)
	return next, nil
}

// AnswerCurrent overwrites the answer of the displayed step.
func AnswerCurrent(s *State, value string) (*State, error) {
	if err := checkEditable(s); err != nil {
		return s, err
	}
	step, ok := s.CurrentStep()
	if !ok {
		return s, ErrNoCurrentStep
	}
	return SetAnswer(s, step.ID, value)
}

// Select records an option of the displayed choice step.
// It does not move the cursor; callers decide when to Advance.
func Select(s *State, value string) (*State, error) {
	if err := checkEditable(s); err != nil {
		return s, err
	}
	step, ok := s.CurrentStep()
	if !ok {
		return s, ErrNoCurrentStep
	}
	if !step.IsChoice() {
		return s, fmt.Errorf("%w: %s", ErrNotChoiceStep, step.ID)
	}
	if !step.HasOption(value) {
		return s, fmt.Errorf("%w: %q for %s", ErrUnknownOption, value, step.ID)
	}
	return SetAnswer(s, step.ID, value)
}

// Advance moves to the next screen when the displayed step has a non-empty answer.
// It reports whether the cursor moved. Reaching len(steps) shows the recap.
func Advance(s *State) (*State, bool) {
	step, ok := s.CurrentStep()
	if !ok || s.Answers.Get(step.ID) == "" {
		return s, false
	}
	next := s.Snapshot()
	next.Direction = Forward
	next.Cursor++
	settle(next)
	return next, true
}

// Retreat moves back one screen. It is a no-op on the first step.
func Retreat(s *State) (*State, bool) {
	if s.Phase != PhaseActive && s.Phase != PhaseRecap {
		return s, false
	}
	if s.Cursor == 0 {
		return s, false
	}
	next := s.Snapshot()
	next.Direction = Backward
	next.Cursor--
	settle(next)
	return next, true
}

// JumpTo moves the cursor directly to index, bypassing answer checks.
// It is what the recap's edit links use.
func JumpTo(s *State, index int) (*State, error) {
	if err := checkEditable(s); err != nil {
		return s, err
	}
	steps := s.Steps()
	if index < 0 || index > len(steps) {
		return s, fmt.Errorf("%w: %d not in [0, %d]", ErrStepOutOfRange, index, len(steps))
	}
	next := s.Snapshot()
	if index > s.Cursor {
		next.Direction = Forward
	} else {
		next.Direction = Backward
	}
	next.Cursor = index
	settle(next)
	return next, nil
}

// CanSubmit returns nil when the state is on the recap screen.
func CanSubmit(s *State) error {
	switch s.Phase {
	case PhaseRecap:
		return nil
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	case PhaseLoading:
		return ErrLoading
	default:
		return ErrNotAtRecap
	}
}

// RecordSubmission stores the outcome of a submission attempt.
// Only an accepted submission moves the state to PhaseSubmitted.
func RecordSubmission(s *State, sub Submission) *State {
	next := s.Snapshot()
	next.Submission = &sub
	if sub.Outcome == OutcomeAccepted {
		next.Phase = PhaseSubmitted
	}
	return next
}

func checkEditable(s *State) error {
	switch s.Phase {
	case PhaseLoading:
		return ErrLoading
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// settle derives the phase from the cursor position.
// Loading and submitted states are left untouched.
func settle(s *State) {
	if s.Phase != PhaseActive && s.Phase != PhaseRecap {
		return
	}
	steps := s.Steps()
	if s.Cursor > len(steps) {
		s.Cursor = len(steps)
	}
	if s.Cursor == len(steps) {
		s.Phase = PhaseRecap
		return
	}
	s.Phase = PhaseActive
}
