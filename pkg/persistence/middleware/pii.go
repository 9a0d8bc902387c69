package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
)

// Mask replaces scrubbed answers.
const Mask = "***"

// PersonalFieldPatterns matches the identifying fields of the lead form.
var PersonalFieldPatterns = []string{`^(nom|prenom|telephone|email)$`}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks answers of submitted sessions
// whose field name matches one of the patterns.
// Sessions still in progress are stored unchanged so the respondent can resume.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if !state.Terminated() {
		return m.next.Save(ctx, sessionID, state)
	}

	// Clone so the caller keeps its unmasked copy.
	cloned := state.Snapshot()
	for f, v := range cloned.Answers {
		if v != "" && m.matches(string(f)) {
			cloned.Answers[f] = Mask
		}
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
