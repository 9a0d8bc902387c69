package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nodus-reseau/leadform/internal/presentation/graph"
	"github.com/nodus-reseau/leadform/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the form flow as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the steps, including the class step variant of each persona.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(nil))
		return err
	},
}

var stepsCmd = &cobra.Command{
	Use:   "steps [persona]",
	Short: "List the steps shown to a persona as YAML",
	Long: `Prints the step list (prompts, input kinds and options) derived for a persona:
collegien, lyceen, parent or professeur. Without a persona, the common steps are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answers := domain.NewAnswers(domain.DefaultSource)
		if len(args) == 1 {
			if !isPersona(args[0]) {
				return fmt.Errorf("unknown persona %q", args[0])
			}
			answers = answers.With(domain.FieldTypePersonne, args[0])
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(domain.Steps(answers))
	},
}

func isPersona(v string) bool {
	for _, opt := range domain.PersonaOptions {
		if opt.Value == v {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(stepsCmd)
}
