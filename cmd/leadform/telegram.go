package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nodus-reseau/leadform/pkg/adapters/telegram"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the form as a Telegram bot",
	Long: `Long-polls the Telegram Bot API and runs one form per chat.
The token is read from telegram.token (LEADFORM_TELEGRAM_TOKEN).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := app.cfg.Telegram.Token
		if token == "" {
			return errors.New("telegram.token is not set")
		}
		logger := app.logger

		b, err := newBackend(app.cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h := telegram.NewHandler(b.Sessions, telegram.WithLogger(logger))
		if err := h.Serve(ctx, token); err != nil {
			return err
		}
		logger.Info("telegram bot stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
}
