package runner

import (
	"context"
	"fmt"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Handler defines how the progress of a run is presented.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type Handler interface {
	// Started is called once before the first step. run may already carry
	// steps when it is being resumed.
	Started(ctx context.Context, run *domain.Run) error

	// Step is called for every committed ledger entry, in order.
	Step(ctx context.Context, entry domain.LedgerEntry) error

	// Finished is called once when driving stops. err is nil for a
	// terminated run, ErrInterrupted when the user stopped it, or the error
	// that failed it.
	Finished(ctx context.Context, run *domain.Run, err error) error

	// SystemOutput presents a meta-message to the user (e.g. status updates).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Describe summarises what a step produced in a few words.
func Describe(entry domain.LedgerEntry) string {
	if entry.Outcome == domain.OutcomeFailed {
		return "failed: " + entry.Error
	}
	out := entry.Output
	if out == nil {
		return ""
	}
	switch entry.Role {
	case domain.RoleEditor:
		switch {
		case out.EditorDecision != "":
			return "decision: " + string(out.EditorDecision)
		case out.EditingComplete:
			return "ready to write"
		default:
			return fmt.Sprintf("%d queries", len(out.ResearchQueries))
		}
	case domain.RoleResearcher:
		var added []domain.ResearchResult
		if in := entry.Input; in != nil && len(out.ResearchResults) >= len(in.ResearchResults) {
			added = out.ResearchResults[len(in.ResearchResults):]
		}
		failed := 0
		for _, r := range added {
			if r.Failed() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Sprintf("%d results (%d searches failed)", len(added), failed)
		}
		return fmt.Sprintf("%d results", len(added))
	case domain.RoleWriter:
		return fmt.Sprintf("draft %d words", domain.WordCount(domain.Value(out.Draft)))
	case domain.RoleCritic:
		return fmt.Sprintf("feedback %d words", domain.WordCount(domain.Value(out.Feedback)))
	}
	return ""
}
