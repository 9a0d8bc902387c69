package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodus-reseau/leadform/internal/config"
	"github.com/nodus-reseau/leadform/internal/logging"
)

// app holds what the persistent pre-run resolved for the subcommands.
var app struct {
	cfg    *config.Config
	logger *slog.Logger
}

var rootCmd = &cobra.Command{
	Use:   "leadform",
	Short: "leadform collects information requests through a step-by-step form",
	Long: `leadform runs the "Demande d'information" form: a short splash screen,
one question per screen, a recap and a single submission to a form endpoint.

The same form is served to a terminal, over a JSON HTTP API, as MCP tools
and as a Telegram conversation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path, os.Environ())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
		}
		if cmd.Flags().Changed("endpoint") {
			cfg.Submit.Endpoint, _ = cmd.Flags().GetString("endpoint")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		app.cfg = cfg
		app.logger = logging.New(level, logging.Format(cfg.LogFormat))
		slog.SetDefault(app.logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("endpoint", "", "URL of the form-processing endpoint (overrides submit.endpoint)")
}
