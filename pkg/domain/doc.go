/*
Package domain contains the core model and the pure transition logic of the lead form.

It defines the fields collected by the wizard, the step catalogue (including the step
that depends on the respondent's persona), the execution State and the functions that
move a State from one screen to the next. This package is kept free of I/O, timers and
persistence so that every frontend (terminal, HTTP, chat) shares exactly the same rules.

# Key Entities

  - Field: the identifier of one answer; step identifiers are fields.
  - Answers: the field-to-value map that is eventually submitted.
  - Step: one question screen (prompt, input kind, options for choice steps).
  - State: a snapshot of a respondent's progress (phase, cursor, direction, answers).

# Transitions

Transitions never mutate their input: each one returns a fresh State.

	s := domain.NewState("lead-1", "direct", time.Now(), 0)
	s = domain.Activate(s)
	s, _ = domain.SetAnswer(s, domain.FieldNom, "Durand")
	s, _ = domain.Advance(s)

The step list is never cached. Steps(answers) recomputes it on every call, which keeps
it consistent with the current persona answer by construction.
*/
package domain
