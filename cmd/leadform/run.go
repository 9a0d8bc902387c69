package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nodus-reseau/leadform"
	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/internal/presentation/tui"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/runner"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fill in the form in the terminal",
	Long: `Starts the form for a single respondent.

On an interactive terminal the full-screen interface is used. When input or
output is redirected, the form falls back to a line-based dialogue; --json
switches it to NDJSON views (one per line) for scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")
		noBanner, _ := cmd.Flags().GetBool("no-banner")

		query := url.Values{}
		if source != "" {
			query.Set("source", source)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if app.cfg.Submit.Endpoint == "" {
			app.logger.Warn("no submit endpoint configured, the form cannot be sent")
		}

		switch {
		case jsonMode:
			return runLines(ctx, query, runner.NewJSONHandler(os.Stdin, os.Stdout))
		case !interactive || plain:
			var renderer runner.ContentRenderer
			if interactive {
				width, _, _ := term.GetSize(int(os.Stdout.Fd()))
				renderer = tui.NewRenderer(min(width, 80))
			}
			if !noBanner && interactive {
				tui.PrintBanner(os.Stdout, leadform.Version)
			}
			return runLines(ctx, query, runner.NewTextHandler(os.Stdin, os.Stdout, runner.WithTextHandlerRenderer(renderer)))
		default:
			if !noBanner {
				tui.PrintBanner(os.Stdout, leadform.Version)
			}
			return runTUI(ctx, query)
		}
	},
}

func runLines(ctx context.Context, query url.Values, handler runner.IOHandler) error {
	r := runner.NewRunner(
		runner.WithLogger(app.logger),
		runner.WithInputHandler(handler),
		runner.WithQuery(query),
		runner.WithSelectDelay(app.cfg.Form.SelectDelay),
		runner.WithControllerOptions(controllerOptions(app.cfg, app.logger)...),
	)
	return r.Run(ctx)
}

// runTUI drives the full-screen model. Logs would corrupt the screen, so the
// wizard logs nothing while it runs.
func runTUI(ctx context.Context, query url.Values) error {
	opts := append(controllerOptions(app.cfg, app.logger), wizard.WithLogger(logging.NewNop()))
	ctrl := wizard.New(opts...)
	defer ctrl.Close()
	ctrl.Mount(ctx, query)

	final, err := tea.NewProgram(tui.NewModel(ctx, ctrl), tea.WithContext(ctx)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("terminal interface: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.State().Phase != domain.PhaseSubmitted {
		app.logger.Debug("form left before submission", "cancelled", m.Cancelled())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("source", "s", "", "Acquisition source recorded with the answers")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON views out, one answer per line in)")
	runCmd.Flags().Bool("plain", false, "Use the line-based dialogue even on a terminal")
	runCmd.Flags().Bool("no-banner", false, "Do not print the banner")

	// 'run' is the default when no command is provided.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
