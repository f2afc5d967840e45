package main

import (
	"github.com/spf13/cobra"

	"github.com/markgewhite/agentic-essay-writer/internal/cli"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored runs",
	Long:  `List, inspect and remove runs kept in the configured store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListRuns(cmd.Context(), inspectOptions(cmd))
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Show the state and step timeline of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.InspectRun(cmd.Context(), args[0], inspectOptions(cmd))
	},
}

var runsRmCmd = &cobra.Command{
	Use:     "rm <run-id>...",
	Aliases: []string{"delete"},
	Short:   "Remove runs",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := inspectOptions(cmd)
		for _, id := range args {
			if err := cli.DeleteRun(cmd.Context(), id, opts); err != nil {
				return err
			}
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger <run-id>",
	Short: "Print the ledger of a run as JSON, with state snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetInt("since")
		return cli.PrintLedger(cmd.Context(), args[0], since, inspectOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(ledgerCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)

	runsLsCmd.Flags().Bool("json", false, "Print JSON")
	runsInspectCmd.Flags().Bool("json", false, "Print the full run as JSON")
	ledgerCmd.Flags().Int("since", 0, "First ledger index to print")
}

func inspectOptions(cmd *cobra.Command) cli.InspectOptions {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return cli.InspectOptions{
		ConfigPath: globals(cmd).config,
		JSON:       jsonMode,
		Output:     cmd.OutOrStdout(),
	}
}
