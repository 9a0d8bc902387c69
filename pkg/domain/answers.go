package domain

import "log/slog"

// Answers maps each field to the value entered by the respondent.
// Treat it as immutable: use With to derive an updated copy.
type Answers map[Field]string

// NewAnswers returns an answer set with every field empty except source.
func NewAnswers(source string) Answers {
	a := make(Answers, len(Fields))
	for _, f := range Fields {
		a[f] = ""
	}
	a[FieldSource] = source
	return a
}

// Get returns the value stored for f (empty if unset).
func (a Answers) Get(f Field) string {
	return a[f]
}

// With returns a copy of a where f is set to value.
func (a Answers) With(f Field, value string) Answers {
	out := a.Clone()
	out[f] = value
	return out
}

// Clone returns a shallow copy of the answer set.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// LogValue implements slog.LogValuer. Personal fields are masked.
func (a Answers) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(Fields))
	for _, f := range Fields {
		v := a[f]
		if v != "" && f.Personal() {
			v = "***"
		}
		attrs = append(attrs, slog.String(string(f), v))
	}
	return slog.GroupValue(attrs...)
}
