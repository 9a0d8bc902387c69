package domain

// InputKind describes how a step collects its answer.
type InputKind string

const (
	KindText   InputKind = "text"
	KindTel    InputKind = "tel"
	KindEmail  InputKind = "email"
	KindChoice InputKind = "choice" // Single choice among Options
)

// Option is one (value, label) pair of a choice step.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Step is one question screen of the wizard.
type Step struct {
	ID          Field     `json:"id" yaml:"id"`
	Prompt      string    `json:"prompt" yaml:"prompt"`
	Kind        InputKind `json:"kind" yaml:"kind"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsChoice reports whether the step is answered by picking an option.
func (s Step) IsChoice() bool {
	return s.Kind == KindChoice
}

// HasOption reports whether value is one of the step's option values.
func (s Step) HasOption(value string) bool {
	for _, opt := range s.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Label resolves the text shown for a stored value.
// Choice steps show the matching option label, or nothing when no option matches.
// Free-text steps show the raw value.
func (s Step) Label(value string) string {
	if !s.IsChoice() {
		return value
	}
	for _, opt := range s.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return ""
}
