package main

import (
	"github.com/spf13/cobra"

	"github.com/markgewhite/agentic-essay-writer/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [run-id]",
	Short: "Export the agent topology as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the editor, researcher, writer and
critic routing. With a run ID, the path taken by that run is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var runID string
		if len(args) > 0 {
			runID = args[0]
		}
		return cli.PrintGraph(cmd.Context(), runID, inspectOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
