package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/runner"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// stateMsg carries a state published by the controller.
type stateMsg struct{ state *domain.State }

// closedMsg is sent once the controller is closed.
type closedMsg struct{}

// submitMsg is the outcome of a submission started from the recap.
type submitMsg struct {
	notice domain.Notice
	err    error
}

// Model is the Bubble Tea model of the form. It renders the states published
// by a wizard.Controller and forwards key presses to it as commands.
type Model struct {
	ctx  context.Context
	ctrl *wizard.Controller

	state  *domain.State
	screen screen

	input       textinput.Model
	bar         progress.Model
	spin        spinner.Model
	choice      int // highlighted option
	recapCursor int // highlighted recap row, len(recap) is the submit row

	submitting bool
	done       bool
	cancelled  bool
	err        string

	titleStyle    lipgloss.Style
	dimStyle      lipgloss.Style
	promptStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	cursorStyle   lipgloss.Style
	helpStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	successStyle  lipgloss.Style
}

// screen identifies the displayed step so local widgets are only reset when it changes.
type screen struct {
	phase  domain.Phase
	cursor int
	steps  int
}

// NewModel creates the model of a mounted controller.
func NewModel(ctx context.Context, ctrl *wizard.Controller) Model {
	ti := textinput.New()
	ti.CharLimit = runner.DefaultMaxInputSize
	ti.Width = 40
	ti.Prompt = "› "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa"))

	return Model{
		ctx:   ctx,
		ctrl:  ctrl,
		state: ctrl.State(),
		input: ti,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:  sp,

		titleStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#818cf8")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		promptStyle:   lipgloss.NewStyle().Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#c084fc")),
		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#c084fc")),
		helpStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		successStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true),
	}
}

// State returns the last state rendered by the model.
func (m Model) State() *domain.State {
	return m.state
}

// Cancelled reports whether the respondent left before submitting.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.ctrl.Changes()), m.spin.Tick, textinput.Blink)
}

func waitForChange(ch <-chan *domain.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg{state: s}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		cmd := m.setState(msg.state)
		if m.state.Phase == domain.PhaseSubmitted {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Batch(cmd, waitForChange(m.ctrl.Changes()))

	case closedMsg:
		return m, tea.Quit

	case submitMsg:
		m.submitting = false
		if msg.notice.Kind == "" && msg.err != nil {
			m.err = errorText(msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Phase != domain.PhaseLoading && !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		if w := msg.Width - 8; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.submitting {
			return m, nil
		}
		m.err = ""
		switch m.state.Phase {
		case domain.PhaseActive:
			return m.updateStep(msg)
		case domain.PhaseRecap:
			return m.updateRecap(msg)
		}
	}

	if m.state.Phase == domain.PhaseActive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setState adopts a published state and resets the widgets when the screen changed.
func (m *Model) setState(s *domain.State) tea.Cmd {
	m.state = s
	next := screen{phase: s.Phase, cursor: s.Cursor, steps: len(s.Steps())}
	if next == m.screen {
		return nil
	}
	m.screen = next

	switch s.Phase {
	case domain.PhaseActive:
		step, _ := s.CurrentStep()
		value := s.Answers.Get(step.ID)
		if step.IsChoice() {
			m.input.Blur()
			m.choice = 0
			for i, opt := range step.Options {
				if opt.Value == value {
					m.choice = i
				}
			}
			return nil
		}
		m.input.Placeholder = step.Placeholder
		m.input.SetValue(value)
		m.input.CursorEnd()
		return m.input.Focus()
	case domain.PhaseRecap:
		m.input.Blur()
		m.recapCursor = len(s.Steps())
	}
	return nil
}

func (m Model) updateStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step, ok := m.state.CurrentStep()
	if !ok {
		return m, nil
	}

	if msg.Type == tea.KeyEsc || msg.Type == tea.KeyShiftTab {
		m.ctrl.Retreat()
		return m, nil
	}

	if step.IsChoice() {
		switch msg.String() {
		case "up", "k":
			if m.choice > 0 {
				m.choice--
			}
		case "down", "j":
			if m.choice < len(step.Options)-1 {
				m.choice++
			}
		case "enter", " ":
			m.selectOption(step.Options[m.choice].Value)
		default:
			if n := digit(msg); n >= 1 && n <= len(step.Options) {
				m.choice = n - 1
				m.selectOption(step.Options[n-1].Value)
			}
		}
		return m, nil
	}

	if msg.Type == tea.KeyEnter {
		// An empty field keeps the step displayed.
		m.ctrl.Advance()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		clean, err := runner.SanitizeInput(value)
		if err != nil {
			m.err = errorText(err)
			m.input.SetValue(before)
			return m, cmd
		}
		if err := m.ctrl.SetAnswer(clean); err != nil {
			m.err = errorText(err)
		}
	}
	return m, cmd
}

func (m *Model) selectOption(value string) {
	if err := m.ctrl.Select(value); err != nil {
		m.err = errorText(err)
	}
}

func (m Model) updateRecap(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(m.state.Steps())
	switch msg.String() {
	case "up", "k":
		if m.recapCursor > 0 {
			m.recapCursor--
		}
	case "down", "j":
		if m.recapCursor < rows {
			m.recapCursor++
		}
	case "esc", "shift+tab":
		m.ctrl.Retreat()
	case "e", "s":
		return m.submit()
	case "enter":
		if m.recapCursor >= rows {
			return m.submit()
		}
		if err := m.ctrl.JumpTo(m.recapCursor); err != nil {
			m.err = errorText(err)
		}
	default:
		if n := digit(msg); n >= 1 && n <= rows {
			if err := m.ctrl.JumpTo(n - 1); err != nil {
				m.err = errorText(err)
			}
		}
	}
	return m, nil
}

// submit sends the form off the update loop; the new state arrives through Changes.
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.submitting = true
	ctx, ctrl := m.ctx, m.ctrl
	send := func() tea.Msg {
		notice, err := ctrl.Submit(ctx)
		return submitMsg{notice: notice, err: err}
	}
	return m, tea.Batch(send, m.spin.Tick)
}

func digit(msg tea.KeyMsg) int {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return 0
	}
	return int(r - '0')
}

func (m Model) View() string {
	if m.cancelled {
		return m.dimStyle.Render("Formulaire interrompu.") + "\n"
	}

	var b strings.Builder
	view := wizard.NewView(m.state, m.state.ReadyAt, 0)

	b.WriteString(m.titleStyle.Render("Demande d'information"))
	if view.SourceLabel != "" {
		b.WriteString("  ")
		b.WriteString(m.dimStyle.Render(view.SourceLabel))
	}
	b.WriteString("\n\n")

	switch view.Phase {
	case domain.PhaseLoading:
		b.WriteString(m.spin.View())
		b.WriteString(" Chargement du formulaire…\n")

	case domain.PhaseActive:
		m.viewStep(&b, view)

	case domain.PhaseRecap, domain.PhaseSubmitted:
		m.viewRecap(&b, view)
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(m.errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewStep(b *strings.Builder, view wizard.View) {
	b.WriteString(m.bar.ViewAs(view.Progress.Ratio))
	b.WriteString("\n")
	b.WriteString(m.dimStyle.Render(view.Progress.Label))
	b.WriteString("\n\n")
	if view.Step == nil {
		return
	}

	b.WriteString(m.promptStyle.Render(view.Step.Prompt))
	b.WriteString("\n\n")

	help := "Entrée pour continuer"
	if view.Step.IsChoice() {
		for i, opt := range view.Step.Options {
			cursor, label := "  ", opt.Label
			if i == m.choice {
				cursor = m.cursorStyle.Render("> ")
				label = m.selectedStyle.Render(label)
			}
			mark := ""
			if opt.Value == view.Step.Value {
				mark = " ✓"
			}
			fmt.Fprintf(b, "%s%d. %s%s\n", cursor, i+1, label, mark)
		}
		help = "↑/↓ pour choisir, Entrée pour valider"
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if view.Step.CanRetreat {
		help += ", Échap pour revenir"
	}
	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render(help))
	b.WriteString("\n")
}

func (m Model) viewRecap(b *strings.Builder, view wizard.View) {
	if view.Notice != nil {
		style := m.errorStyle
		if view.Notice.Kind == domain.NoticeSuccess {
			style = m.successStyle
		}
		b.WriteString(style.Render(view.Notice.Message))
		b.WriteString("\n\n")
	}

	b.WriteString(m.promptStyle.Render("Récapitulatif"))
	b.WriteString("\n\n")
	for i, line := range view.Recap {
		cursor := "  "
		if view.CanSubmit && i == m.recapCursor {
			cursor = m.cursorStyle.Render("> ")
		}
		fmt.Fprintf(b, "%s%d. %s %s\n", cursor, i+1, m.dimStyle.Render(line.Prompt), line.Label)
	}
	if !view.CanSubmit {
		return
	}

	b.WriteString("\n")
	submit := "[ Envoyer ]"
	if m.submitting {
		submit = m.spin.View() + " Envoi en cours…"
	} else if m.recapCursor >= len(view.Recap) {
		submit = m.cursorStyle.Render("> ") + m.selectedStyle.Render(submit)
	} else {
		submit = "  " + submit
	}
	b.WriteString(submit)
	b.WriteString("\n\n")
	b.WriteString(m.helpStyle.Render("Entrée sur une ligne pour la modifier, e pour envoyer"))
	b.WriteString("\n")
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownOption):
		return "Choix inconnu."
	case errors.Is(err, wizard.ErrNoSubmitter):
		return "Aucune adresse d'envoi n'est configurée."
	case errors.Is(err, wizard.ErrSubmitInFlight):
		return "Envoi en cours…"
	case errors.Is(err, runner.ErrInputTooLarge):
		return "Réponse trop longue."
	case errors.Is(err, runner.ErrInvalidUTF8):
		return "Réponse illisible."
	default:
		return err.Error()
	}
}
