package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	essay "github.com/markgewhite/agentic-essay-writer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of essay",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "essay version %s\n", strings.TrimSpace(essay.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
