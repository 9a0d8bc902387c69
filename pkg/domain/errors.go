package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrStepOutOfRange is returned when a jump targets an index outside [0, len(steps)].
var ErrStepOutOfRange = errors.New("step index out of range")

// ErrUnknownField is returned when an answer targets a field that is not declared.
var ErrUnknownField = errors.New("unknown field")

// ErrNotChoiceStep is returned when an option is selected on a free-text step.
var ErrNotChoiceStep = errors.New("current step is not a choice step")

// ErrUnknownOption is returned when a selected value is not one of the step options.
var ErrUnknownOption = errors.New("unknown option")

// ErrNoCurrentStep is returned when an input is sent while the recap is displayed.
var ErrNoCurrentStep = errors.New("no step is displayed")

// ErrNotAtRecap is returned when submission is requested before the recap screen.
var ErrNotAtRecap = errors.New("submission is only possible from the recap")

// ErrAlreadySubmitted is returned for any command sent after a successful submission.
var ErrAlreadySubmitted = errors.New("form already submitted")

// ErrLoading is returned for commands sent while the splash screen is shown.
var ErrLoading = errors.New("form is still loading")

// ErrTransport wraps network-level submission failures (DNS, connect, timeout).
var ErrTransport = errors.New("transport failure")
