package main

import (
	"fmt"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [walk-id]",
	Short: "Export the workflow as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the workflow. With a walk ID, the walk's path is highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var walk *domain.State
		if len(args) == 1 {
			walk, err = a.svc.Walk(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load walk %q: %w", args[0], err)
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), a.svc.Diagram(walk))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
