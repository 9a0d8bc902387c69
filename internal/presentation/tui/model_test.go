package tui

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []domain.Answers
	failures int
}

func (f *fakeSubmitter) Submit(_ context.Context, answers domain.Answers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, answers)
	if len(f.calls) <= f.failures {
		return fmt.Errorf("%w: timeout", domain.ErrTransport)
	}
	return nil
}

func newTestModel(t *testing.T, sub *fakeSubmitter) (Model, *wizard.Controller) {
	t.Helper()
	ctrl := wizard.New(
		wizard.WithSplashDelay(0),
		wizard.WithSelectDelay(0),
		wizard.WithSubmitter(sub),
	)
	t.Cleanup(ctrl.Close)
	ctrl.Mount(context.Background(), url.Values{"source": {"salon"}})
	return pump(NewModel(context.Background(), ctrl), ctrl), ctrl
}

// pump feeds the pending controller state to the model.
func pump(m Model, ctrl *wizard.Controller) Model {
	select {
	case s, ok := <-ctrl.Changes():
		if ok {
			next, _ := m.Update(stateMsg{state: s})
			return next.(Model)
		}
	default:
	}
	return m
}

func press(m Model, ctrl *wizard.Controller, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = pump(next.(Model), ctrl)
	}
	return m, cmd
}

func typed(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

// runSubmit executes the batched submission command and delivers its result.
func runSubmit(t *testing.T, m Model, ctrl *wizard.Controller, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(submitMsg); ok {
			next, _ := m.Update(msg)
			return pump(next.(Model), ctrl)
		}
	}
	t.Fatal("no submission in batch")
	return m
}

func fillContact(m Model, ctrl *wizard.Controller) Model {
	m, _ = press(m, ctrl,
		typed("Durand"), enter,
		typed("Léa"), enter,
		typed("0612345678"), enter,
		typed("lea@example.fr"), enter,
	)
	return m
}

func TestModel_FullFlow(t *testing.T) {
	sub := &fakeSubmitter{}
	m, ctrl := newTestModel(t, sub)

	assert.Equal(t, domain.PhaseActive, m.State().Phase)
	assert.Contains(t, m.View(), "Source: salon")
	assert.Contains(t, m.View(), "Étape 1 sur 5")

	m = fillContact(m, ctrl)
	assert.Equal(t, domain.FieldTypePersonne, m.State().Steps()[m.State().Cursor].ID)

	m, _ = press(m, ctrl, typed("2"))
	assert.Contains(t, m.View(), "Quelle est votre classe actuelle ?")
	assert.Contains(t, m.View(), "Étape 6 sur 6")

	m, _ = press(m, ctrl, typed("7"))
	require.Equal(t, domain.PhaseRecap, m.State().Phase)
	assert.Contains(t, m.View(), "Terminale")
	assert.Contains(t, m.View(), "[ Envoyer ]")

	m, cmd := press(m, ctrl, enter)
	assert.True(t, m.submitting)
	m = runSubmit(t, m, ctrl, cmd)

	assert.Equal(t, domain.PhaseSubmitted, m.State().Phase)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), domain.SuccessNotice.Message)
	assert.NotContains(t, m.View(), "[ Envoyer ]")

	require.Len(t, sub.calls, 1)
	assert.Equal(t, "lyceen", sub.calls[0].Get(domain.FieldTypePersonne))
	assert.Equal(t, "terminale", sub.calls[0].Get(domain.FieldClasse))
	assert.Equal(t, "salon", sub.calls[0].Get(domain.FieldSource))
}

func TestModel_EmptyFieldDoesNotAdvance(t *testing.T) {
	m, ctrl := newTestModel(t, &fakeSubmitter{})

	m, _ = press(m, ctrl, enter)
	assert.Equal(t, 0, m.State().Cursor)
	assert.Empty(t, m.err)
}

func TestModel_RetreatKeepsAnswer(t *testing.T) {
	m, ctrl := newTestModel(t, &fakeSubmitter{})

	m, _ = press(m, ctrl, typed("Durand"), enter)
	require.Equal(t, 1, m.State().Cursor)

	m, _ = press(m, ctrl, esc)
	assert.Equal(t, 0, m.State().Cursor)
	assert.Equal(t, domain.Backward, m.State().Direction)
	assert.Equal(t, "Durand", m.input.Value())
}

func TestModel_ChoiceCursorAndRecapEdit(t *testing.T) {
	sub := &fakeSubmitter{}
	m, ctrl := newTestModel(t, sub)
	m = fillContact(m, ctrl)

	// Professeur: no class step.
	m, _ = press(m, ctrl, down, down, down, enter)
	require.Equal(t, domain.PhaseRecap, m.State().Phase)
	assert.Len(t, m.State().Steps(), 5)

	m, _ = press(m, ctrl, typed("1"))
	require.Equal(t, domain.PhaseActive, m.State().Phase)
	assert.Equal(t, 0, m.State().Cursor)
	assert.Equal(t, "Durand", m.input.Value())

	m, _ = press(m, ctrl, typed("-Roy"), enter, enter, enter, enter, enter)
	require.Equal(t, domain.PhaseRecap, m.State().Phase)
	assert.Contains(t, m.View(), "Durand-Roy")
}

func TestModel_FailureThenRetry(t *testing.T) {
	sub := &fakeSubmitter{failures: 1}
	m, ctrl := newTestModel(t, sub)
	m = fillContact(m, ctrl)
	m, _ = press(m, ctrl, typed("4"))
	require.Equal(t, domain.PhaseRecap, m.State().Phase)

	m, cmd := press(m, ctrl, typed("e"))
	m = runSubmit(t, m, ctrl, cmd)
	assert.Equal(t, domain.PhaseRecap, m.State().Phase)
	assert.False(t, m.submitting)
	assert.Contains(t, m.View(), domain.FailureNotice.Message)

	m, cmd = press(m, ctrl, typed("e"))
	m = runSubmit(t, m, ctrl, cmd)
	assert.Equal(t, domain.PhaseSubmitted, m.State().Phase)
	assert.Len(t, sub.calls, 2)
}

func TestModel_NoSubmitter(t *testing.T) {
	ctrl := wizard.New(wizard.WithSplashDelay(0), wizard.WithSelectDelay(0))
	t.Cleanup(ctrl.Close)
	ctrl.Mount(context.Background(), nil)
	m := pump(NewModel(context.Background(), ctrl), ctrl)
	m = fillContact(m, ctrl)
	m, _ = press(m, ctrl, typed("4"))

	m, cmd := press(m, ctrl, typed("e"))
	m = runSubmit(t, m, ctrl, cmd)
	assert.Equal(t, domain.PhaseRecap, m.State().Phase)
	assert.Contains(t, m.View(), "Aucune adresse d'envoi")
}

func TestModel_CtrlCCancels(t *testing.T) {
	m, ctrl := newTestModel(t, &fakeSubmitter{})

	m, cmd := press(m, ctrl, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.Cancelled())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, m.View(), "Formulaire interrompu.")
}

func TestModel_SplashShowsLoading(t *testing.T) {
	ctrl := wizard.New(wizard.WithSplashDelay(wizard.DefaultSplashDelay))
	t.Cleanup(ctrl.Close)
	ctrl.Mount(context.Background(), nil)
	m := pump(NewModel(context.Background(), ctrl), ctrl)

	assert.Equal(t, domain.PhaseLoading, m.State().Phase)
	assert.Contains(t, m.View(), "Chargement du formulaire")

	m, _ = press(m, ctrl, typed("x"), enter)
	assert.Equal(t, domain.PhaseLoading, m.State().Phase)
}
