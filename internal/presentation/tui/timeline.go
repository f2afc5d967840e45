package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/runner"
)

var roleColors = map[domain.Role]string{
	domain.RoleEditor:     "#818cf8",
	domain.RoleResearcher: "#34d399",
	domain.RoleWriter:     "#f472b6",
	domain.RoleCritic:     "#fbbf24",
}

// PrintTimeline writes one line per ledger entry of run.
func PrintTimeline(w io.Writer, run *domain.Run) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	if run.Ledger == nil || run.Ledger.Len() == 0 {
		fmt.Fprintln(w, "No steps yet.")
		return
	}
	for _, e := range run.Ledger.Entries() {
		label := out.String(fmt.Sprintf("%-14s", e.Label())).Foreground(p.Color(roleColors[e.Role]))
		outcome := out.String(string(e.Outcome))
		if e.Outcome == domain.OutcomeFailed {
			outcome = outcome.Foreground(p.Color("#ef4444")).Bold()
		}
		next := "end"
		if e.Next != "" {
			next = string(e.Next)
		}
		fmt.Fprintf(w, "%3d  %s %-9s %-34s %-10s %-18s %s\n",
			e.Index, label, outcome, runner.Describe(e), next, e.Edge, e.Duration.Round(100*time.Millisecond))
	}
}

// PrintRuns writes a table of run summaries.
func PrintRuns(w io.Writer, runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-10s  %5s  %-28s  %s\n", "ID", "STATUS", "STEPS", "COMPLETION", "TOPIC")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-10s  %5d  %-28s  %s\n", r.ID, r.Status, r.Steps, r.Completion, truncate(r.Topic, 60))
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
