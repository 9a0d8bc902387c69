package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodus-reseau/leadform"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of leadform",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "leadform version %s\n", strings.TrimSpace(leadform.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
