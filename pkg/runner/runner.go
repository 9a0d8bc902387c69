package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// Line commands.
const (
	CmdBack   = ":retour"
	CmdSubmit = ":envoyer"
	CmdQuit   = ":quit"
)

var errUnknownCommand = errors.New("unknown command")

// Runner handles the interaction loop of one respondent using the provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler over Stdin/Stdout is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Renderer is applied by the default TextHandler.
	Renderer ContentRenderer

	// Query is the landing query (source, utm_source).
	Query url.Values

	// ControllerOptions configure the wizard.
	ControllerOptions []wizard.Option

	selectDelay time.Duration
}

// NewRunner creates a new Runner with default Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:      logging.NewNop(),
		selectDelay: wizard.DefaultSelectDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// screenKey identifies what is on screen. Answer edits that do not move the
// respondent keep the key, so they are not rendered again.
type screenKey struct {
	phase  domain.Phase
	cursor int
	steps  int
	notice domain.NoticeKind
	at     time.Time
}

func keyOf(s *domain.State) screenKey {
	k := screenKey{phase: s.Phase, cursor: s.Cursor, steps: len(s.Steps())}
	if s.Submission != nil {
		k.notice = domain.NoticeFor(*s.Submission).Kind
		k.at = s.Submission.At
	}
	return k
}

// Run executes the form until it is submitted, the input ends or ctx is cancelled.
// Leaving before submission is not an error.
func (r *Runner) Run(ctx context.Context) error {
	handler := r.resolveHandler()
	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	opts := append(append([]wizard.Option{}, r.ControllerOptions...), wizard.WithSelectDelay(r.selectDelay))
	ctrl := wizard.New(opts...)
	defer ctrl.Close()

	// Lines are only read on request so prompts follow the screen they belong to.
	want := make(chan struct{}, 1)
	inputs := make(chan inputResult)
	go readInputs(ctx, handler, want, inputs)

	var (
		last     screenKey
		rendered bool
		pending  bool

		// A selection keeps the screen until the auto-advance timer moves the
		// cursor, even when it changes the step list.
		awaiting   bool
		selectedAt screenKey
	)
	requestInput := func() {
		if pending {
			return
		}
		pending = true
		want <- struct{}{}
	}
	// show renders s when the screen changed. It reports whether the form is over.
	show := func(s *domain.State) (bool, error) {
		key := keyOf(s)
		if awaiting {
			if key.phase == selectedAt.phase && key.cursor == selectedAt.cursor {
				return false, nil
			}
			awaiting = false
		}
		if rendered && key == last {
			return false, nil
		}
		last, rendered = key, true
		if err := handler.Output(ctx, wizard.NewView(s, time.Now(), r.selectDelay)); err != nil {
			return true, fmt.Errorf("output error: %w", err)
		}
		if s.Phase == domain.PhaseSubmitted {
			return true, nil
		}
		if s.Phase != domain.PhaseLoading {
			requestInput()
		}
		return false, nil
	}

	ctrl.Mount(ctx, r.Query)

	for {
		select {
		case <-ctx.Done():
			handler.SystemOutput(context.Background(), "Formulaire interrompu.")
			return nil

		case s, ok := <-ctrl.Changes():
			if !ok {
				return nil
			}
			if done, err := show(s); done || err != nil {
				return err
			}

		case res := <-inputs:
			pending = false
			if res.err != nil {
				signals.CheckRace()
				if ctx.Err() != nil {
					handler.SystemOutput(context.Background(), "Formulaire interrompu.")
					return nil
				}
				if errors.Is(res.err, io.EOF) {
					r.Logger.Debug("runner input closed", "err", res.err)
					return nil
				}
				return fmt.Errorf("input error: %w", res.err)
			}

			before := keyOf(ctrl.State())
			quit, waitForAdvance, err := r.dispatch(ctx, ctrl, res.text)
			if quit {
				return nil
			}
			if waitForAdvance {
				awaiting, selectedAt = true, before
			}
			if err != nil {
				handler.SystemOutput(ctx, messageFor(err))
			}
			// Commands commit synchronously: render their result before prompting again.
			select {
			case s, ok := <-ctrl.Changes():
				if !ok {
					return nil
				}
				if done, err := show(s); done || err != nil {
					return err
				}
			default:
			}
			if !waitForAdvance {
				requestInput()
			}
		}
	}
}

func readInputs(ctx context.Context, handler IOHandler, want <-chan struct{}, out chan<- inputResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-want:
		}
		text, err := handler.Input(ctx)
		select {
		case out <- inputResult{text: text, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatch applies one input line. waitForAdvance is set when the next screen
// comes from the auto-advance timer.
func (r *Runner) dispatch(ctx context.Context, ctrl *wizard.Controller, line string) (quit, waitForAdvance bool, err error) {
	switch line {
	case CmdQuit:
		return true, false, nil
	case CmdBack:
		ctrl.Retreat()
		return false, false, nil
	}

	state := ctrl.State()
	switch state.Phase {
	case domain.PhaseLoading:
		return false, false, domain.ErrLoading

	case domain.PhaseRecap:
		if line == CmdSubmit {
			notice, err := ctrl.Submit(ctx)
			if notice.Kind != "" {
				// The outcome is on the next screen.
				r.Logger.Debug("runner submission", "notice", notice.Kind, "err", err)
				return false, false, nil
			}
			return false, false, err
		}
		if n, convErr := strconv.Atoi(line); convErr == nil {
			return false, false, ctrl.JumpTo(n - 1)
		}
		return false, false, errUnknownCommand

	case domain.PhaseActive:
		step, _ := state.CurrentStep()
		if line == "" {
			ctrl.Advance()
			return false, false, nil
		}
		if step.IsChoice() {
			value, ok := matchOption(step, line)
			if !ok {
				return false, false, domain.ErrUnknownOption
			}
			if err := ctrl.Select(value); err != nil {
				return false, false, err
			}
			return false, r.selectDelay > 0, nil
		}
		if err := ctrl.SetAnswer(line); err != nil {
			return false, false, err
		}
		ctrl.Advance()
		return false, false, nil
	}
	return false, false, domain.ErrAlreadySubmitted
}

// matchOption resolves a 1-based option number, an option value or a label.
func matchOption(step domain.Step, input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(step.Options) {
			return step.Options[n-1].Value, true
		}
		return "", false
	}
	for _, opt := range step.Options {
		if strings.EqualFold(opt.Value, input) || strings.EqualFold(opt.Label, input) {
			return opt.Value, true
		}
	}
	return "", false
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownOption):
		return "Choix inconnu, tapez le numéro d'une réponse."
	case errors.Is(err, domain.ErrStepOutOfRange):
		return "Numéro d'étape inconnu."
	case errors.Is(err, domain.ErrLoading):
		return "Le formulaire se charge, un instant…"
	case errors.Is(err, wizard.ErrNoSubmitter):
		return "Aucune adresse d'envoi n'est configurée."
	case errors.Is(err, errUnknownCommand):
		return "Commande inconnue : un numéro pour modifier, " + CmdSubmit + " pour envoyer."
	default:
		return err.Error()
	}
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	r.Handler = NewTextHandler(os.Stdin, os.Stdout, WithTextHandlerRenderer(r.Renderer))
	return r.Handler
}
