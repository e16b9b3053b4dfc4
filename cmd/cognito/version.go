package main

import (
	"fmt"

	"github.com/aretw0/cognito"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cognito",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cognito version %s\n", cognito.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
