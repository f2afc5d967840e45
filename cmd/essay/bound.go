package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markgewhite/agentic-essay-writer/internal/cli"
)

var boundCmd = &cobra.Command{
	Use:   "bound",
	Short: "Print the maximum number of steps a run can take",
	Long:  `Computes the step bound from the configured limits and the limit flags of run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(globals(cmd).config, false)
		if err != nil {
			return err
		}
		limits := limitsFromFlags(cmd).Or(cfg.Run.Limits).WithDefaults()
		if err := limits.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "editing %d, writing %d, critique %d: at most %d steps\n",
			limits.MaxEditingIterations, limits.MaxWritingIterations, limits.MaxCritiqueCycles, limits.StepBound())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boundCmd)
	boundCmd.Flags().Int("max-editing", 0, "Maximum editor planning iterations")
	boundCmd.Flags().Int("max-writing", 0, "Maximum drafts per run (also caps critique cycles)")
	boundCmd.Flags().Int("max-critique", 0, "Maximum critique cycles")
	boundCmd.Flags().Int("max-queries", 0, "Maximum research queries per round")
	boundCmd.Flags().Int("max-results", 0, "Maximum search results per query")
	boundCmd.Flags().IntP("length", "l", 0, "Target essay length in words")
}
