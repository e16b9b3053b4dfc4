package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/cognito/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var walksCmd = &cobra.Command{
	Use:   "walks",
	Short: "Manage walks parked for approval",
	Long:  `List, inspect and resume suspended walks held by the configured store.`,
}

var walksLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List parked walks",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.svc.Pending(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list walks: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No parked walks found.")
			return nil
		}
		fmt.Fprintln(out, "Parked walks:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var walksInspectCmd = &cobra.Command{
	Use:   "inspect <walk-id>",
	Short: "Print the full state of a parked walk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.svc.Walk(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load walk %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var walksResumeCmd = &cobra.Command{
	Use:   "resume <walk-id> <APPROVE|REJECT>",
	Short: "Approve or reject the pending action of a parked walk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.svc.Resume(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to resume walk %q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.AnswerMarkdown(ans))
		return nil
	},
}

func init() {
	walksCmd.AddCommand(walksLsCmd, walksInspectCmd, walksResumeCmd)
	rootCmd.AddCommand(walksCmd)
}
