package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "essay",
	Short: "An agentic essay writer",
	Long: `essay writes a short essay on a topic with four cooperating agents:
an editor that plans and judges, a researcher that searches the web, a writer
that drafts and a critic that reviews. Every run is persisted step by step
and can be inspected or resumed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default essay.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("offline", false, "Use deterministic stub agents instead of LLM and search APIs")
}

type globalFlags struct {
	config  string
	debug   bool
	offline bool
}

func globals(cmd *cobra.Command) globalFlags {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	offline, _ := cmd.Flags().GetBool("offline")
	return globalFlags{config: configPath, debug: debug, offline: offline}
}
