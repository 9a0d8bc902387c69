package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nodus-reseau/leadform/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML, secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *app.cfg
		mask(&cfg.Redis.Password)
		mask(&cfg.Telegram.Token)
		mask(&cfg.Encryption.Key)
		if n := len(cfg.Encryption.FallbackKeys); n > 0 {
			cfg.Encryption.FallbackKeys = []string{fmt.Sprintf("*** (%d keys)", n)}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables understood by leadform",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.EnvKeys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

func mask(s *string) {
	if *s != "" {
		*s = "***"
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
}
