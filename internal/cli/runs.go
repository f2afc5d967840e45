package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/markgewhite/agentic-essay-writer/internal/presentation/graph"
	"github.com/markgewhite/agentic-essay-writer/internal/presentation/tui"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// InspectOptions configure the read-only run commands.
type InspectOptions struct {
	ConfigPath string
	JSON       bool
	Output     io.Writer
}

// openReadOnly builds a stack for commands that never step a run, so no
// API keys are required.
func openReadOnly(path string) (*Stack, error) {
	cfg, err := LoadConfig(path, false)
	if err != nil {
		return nil, err
	}
	return NewStack(cfg, EngineOptions{Offline: true})
}

// ListRuns prints a summary of every stored run.
func ListRuns(ctx context.Context, opts InspectOptions) error {
	stack, err := openReadOnly(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer stack.Close()

	ids, err := stack.Engine.List(ctx)
	if err != nil {
		return err
	}
	runs := make([]domain.RunSummary, 0, len(ids))
	for _, id := range ids {
		run, err := stack.Engine.Inspect(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		runs = append(runs, domain.SummaryOf(run))
	}
	if opts.JSON {
		return writeJSON(opts.Output, runs)
	}
	tui.PrintRuns(opts.Output, runs)
	return nil
}

// InspectRun prints the state of one run and its step timeline.
func InspectRun(ctx context.Context, runID string, opts InspectOptions) error {
	stack, err := openReadOnly(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer stack.Close()

	run, err := stack.Engine.Inspect(ctx, runID)
	if err != nil {
		return err
	}
	if opts.JSON {
		return writeJSON(opts.Output, run)
	}

	sum := domain.SummaryOf(run)
	fmt.Fprintf(opts.Output, "Run:        %s\n", sum.ID)
	fmt.Fprintf(opts.Output, "Topic:      %s\n", sum.Topic)
	fmt.Fprintf(opts.Output, "Status:     %s\n", sum.Status)
	if sum.Completion != "" {
		fmt.Fprintf(opts.Output, "Completion: %s\n", sum.Completion)
	}
	if sum.Next != "" {
		fmt.Fprintf(opts.Output, "Next:       %s\n", sum.Next)
	}
	if run.State != nil {
		c := domain.CountersOf(run.State)
		fmt.Fprintf(opts.Output, "Counters:   editing %d/%d, writing %d/%d, critique %d/%d\n",
			c.Editing, run.State.Limits.MaxEditingIterations,
			c.Writing, run.State.Limits.MaxWritingIterations,
			c.Critique, run.State.Limits.MaxCritiqueCycles)
		if thesis := domain.Value(run.State.Thesis); thesis != "" {
			fmt.Fprintf(opts.Output, "Thesis:     %s\n", thesis)
		}
	}
	if run.Error != nil {
		fmt.Fprintf(opts.Output, "Error:      %s (%s)\n", run.Error.Message, run.Error.Type)
	}
	fmt.Fprintln(opts.Output)
	tui.PrintTimeline(opts.Output, run)
	return nil
}

// PrintLedger writes the ledger entries of a run from index since, with
// their state snapshots.
func PrintLedger(ctx context.Context, runID string, since int, opts InspectOptions) error {
	stack, err := openReadOnly(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer stack.Close()

	run, err := stack.Engine.Inspect(ctx, runID)
	if err != nil {
		return err
	}
	var entries []domain.LedgerEntry
	if run.Ledger != nil {
		entries = run.Ledger.Since(since)
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return writeJSON(opts.Output, entries)
}

// DeleteRun removes a stored run.
func DeleteRun(ctx context.Context, runID string, opts InspectOptions) error {
	stack, err := openReadOnly(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.Engine.Delete(ctx, runID); err != nil {
		return err
	}
	printSystemMessage(opts.Output, "Run '%s' deleted.", runID)
	return nil
}

// PrintGraph writes the Mermaid flowchart of the topology, with the path of
// runID overlaid when one is given.
func PrintGraph(ctx context.Context, runID string, opts InspectOptions) error {
	if runID == "" {
		fmt.Fprint(opts.Output, graph.GenerateMermaid(nil))
		return nil
	}
	stack, err := openReadOnly(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer stack.Close()

	run, err := stack.Engine.Inspect(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprint(opts.Output, graph.GenerateMermaid(graph.OverlayOf(run)))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
