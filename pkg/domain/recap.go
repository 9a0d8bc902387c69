package domain

import "fmt"

// RecapLine is one row of the review screen.
type RecapLine struct {
	// Index is the step index an edit link jumps to.
	Index  int    `json:"index"`
	Field  Field  `json:"field"`
	Prompt string `json:"prompt"`
	Label  string `json:"label"`
}

// Recap lists every step of the current step list with its resolved label.
func Recap(s *State) []RecapLine {
	steps := s.Steps()
	lines := make([]RecapLine, len(steps))
	for i, step := range steps {
		lines[i] = RecapLine{
			Index:  i,
			Field:  step.ID,
			Prompt: step.Prompt,
			Label:  step.Label(s.Answers.Get(step.ID)),
		}
	}
	return lines
}

// Progress summarises the cursor position for progress bars and step counters.
type Progress struct {
	Position int     `json:"position"` // 1-based step number
	Total    int     `json:"total"`
	Ratio    float64 `json:"ratio"` // (cursor+1)/total, capped at 1
	Label    string  `json:"label"`
}

// ProgressOf computes the progress indicator of s.
func ProgressOf(s *State) Progress {
	total := len(s.Steps())
	p := Progress{
		Position: s.Cursor + 1,
		Total:    total,
	}
	if total > 0 {
		p.Ratio = float64(s.Cursor+1) / float64(total)
		if p.Ratio > 1 {
			p.Ratio = 1
		}
	}
	switch s.Phase {
	case PhaseRecap, PhaseSubmitted:
		p.Label = "Récapitulatif"
	case PhaseLoading:
		p.Label = ""
	default:
		p.Label = fmt.Sprintf("Étape %d sur %d", p.Position, total)
	}
	return p
}
