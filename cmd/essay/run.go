package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markgewhite/agentic-essay-writer/internal/cli"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Write an essay on a topic",
	Long: `Starts a new run and drives it to completion, printing one line per agent step
and the essay at the end. The topic is read from stdin when no argument is given.
Interrupting with Ctrl+C stops after the current step; the run can be resumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd)
		if len(args) > 0 {
			opts.Topic = strings.Join(args, " ")
		} else {
			topic, err := runner.ReadTopic(os.Stdin)
			if err != nil {
				return err
			}
			opts.Topic = topic
		}
		opts.RunID, _ = cmd.Flags().GetString("id")
		opts.Limits = limitsFromFlags(cmd)
		opts.Models = modelsFromFlags(cmd)
		return cli.Execute(cmd.Context(), opts)
	},
}

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Continue an interrupted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd)
		opts.RunID = args[0]
		return cli.Resume(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().Bool("json", false, "Emit NDJSON events instead of text")
		c.Flags().BoolP("quiet", "q", false, "Print only the essay")
		c.Flags().Bool("plain", false, "Disable colours and markdown rendering")
	}

	runCmd.Flags().String("id", "", "Run ID (generated when empty; an existing unfinished run is continued)")
	runCmd.Flags().Int("max-editing", 0, "Maximum editor planning iterations")
	runCmd.Flags().Int("max-writing", 0, "Maximum drafts per run (also caps critique cycles)")
	runCmd.Flags().Int("max-critique", 0, "Maximum critique cycles")
	runCmd.Flags().Int("max-queries", 0, "Maximum research queries per round")
	runCmd.Flags().Int("max-results", 0, "Maximum search results per query")
	runCmd.Flags().IntP("length", "l", 0, "Target essay length in words")
	for _, role := range domain.Roles() {
		runCmd.Flags().String(string(role)+"-model", "", "Model for the "+string(role))
	}
}

func runOptions(cmd *cobra.Command) cli.RunOptions {
	g := globals(cmd)
	jsonMode, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	plain, _ := cmd.Flags().GetBool("plain")
	return cli.RunOptions{
		ConfigPath: g.config,
		JSON:       jsonMode,
		Quiet:      quiet,
		Plain:      plain,
		Offline:    g.offline,
		Debug:      g.debug,
	}
}

// limitsFromFlags leaves unset flags at zero so configured defaults apply.
func limitsFromFlags(cmd *cobra.Command) domain.Limits {
	get := func(name string) int {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return domain.Limits{
		MaxEditingIterations: get("max-editing"),
		MaxWritingIterations: get("max-writing"),
		MaxCritiqueCycles:    get("max-critique"),
		MaxQueries:           get("max-queries"),
		MaxResultsPerQuery:   get("max-results"),
		MaxEssayLength:       get("length"),
	}
}

func modelsFromFlags(cmd *cobra.Command) domain.Models {
	get := func(role domain.Role) string {
		v, _ := cmd.Flags().GetString(string(role) + "-model")
		return v
	}
	return domain.Models{
		Editor:     get(domain.RoleEditor),
		Researcher: get(domain.RoleResearcher),
		Writer:     get(domain.RoleWriter),
		Critic:     get(domain.RoleCritic),
	}
}
