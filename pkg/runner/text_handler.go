package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	mu        sync.Mutex // guards Writer
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult, DefaultInputBufferSize)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Output prints a screen, through the Renderer when one is set.
func (h *TextHandler) Output(ctx context.Context, view wizard.View) error {
	output := FormatView(view)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}

// Input prompts and returns the next sanitized line. Rejected lines are
// reported and the prompt is shown again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			h.write("> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				h.write(fmt.Sprintf("Réponse refusée (%v), réessayez.\n", err))
				continue
			}
			return clean, nil
		}
	}
}

// SystemOutput prints a meta-message on its own line.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	h.write(fmt.Sprintf("[!] %s\n", msg))
	return nil
}

func (h *TextHandler) write(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprint(h.Writer, s)
}

// FormatView renders a screen as markdown.
func FormatView(v wizard.View) string {
	var b strings.Builder
	if v.Notice != nil && v.Phase != domain.PhaseActive {
		fmt.Fprintf(&b, "> %s\n\n", v.Notice.Message)
	}

	switch v.Phase {
	case domain.PhaseLoading:
		b.WriteString("Chargement…\n")

	case domain.PhaseActive:
		if v.SourceLabel != "" {
			fmt.Fprintf(&b, "_%s_\n\n", v.SourceLabel)
		}
		fmt.Fprintf(&b, "**%s**\n\n%s\n", v.Progress.Label, v.Step.Prompt)
		if v.Step.IsChoice() {
			b.WriteString("\n")
			for i, opt := range v.Step.Options {
				mark := ""
				if opt.Value == v.Step.Value {
					mark = " ✓"
				}
				fmt.Fprintf(&b, "%d. %s%s\n", i+1, opt.Label, mark)
			}
		} else if v.Step.Value != "" {
			fmt.Fprintf(&b, "\nRéponse actuelle : %s (Entrée pour la garder)\n", v.Step.Value)
		} else if v.Step.Placeholder != "" {
			fmt.Fprintf(&b, "\nEx. : %s\n", v.Step.Placeholder)
		}
		if v.Step.CanRetreat {
			b.WriteString("\n_:retour pour revenir à l'étape précédente_\n")
		}

	case domain.PhaseRecap, domain.PhaseSubmitted:
		b.WriteString("## Récapitulatif\n\n")
		for _, line := range v.Recap {
			fmt.Fprintf(&b, "%d. **%s** %s\n", line.Index+1, line.Prompt, line.Label)
		}
		if v.CanSubmit {
			b.WriteString("\n_Tapez un numéro pour modifier une réponse, :envoyer pour envoyer._\n")
		}
	}
	return b.String()
}
