package runner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// JSONHandler emits one JSON object per line (JSON Lines).
type JSONHandler struct {
	Encoder *json.Encoder

	now   func() time.Time
	runID string
}

// JSONEvent is one line of JSONHandler output.
type JSONEvent struct {
	Type      string             `json:"type"`
	RunID     string             `json:"run_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Run       *domain.RunSummary `json:"run,omitempty"`
	Step      *domain.StepEvent  `json:"step,omitempty"`
	Artifact  *domain.Artifact   `json:"artifact,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// NewJSONHandler creates a handler for JSON output.
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{Encoder: json.NewEncoder(w), now: time.Now}
}

func (h *JSONHandler) emit(ev JSONEvent) error {
	ev.Timestamp = h.now().UTC()
	return h.Encoder.Encode(ev)
}

func (h *JSONHandler) Started(ctx context.Context, run *domain.Run) error {
	h.runID = run.ID
	sum := domain.SummaryOf(run)
	return h.emit(JSONEvent{Type: "run_started", RunID: run.ID, Run: &sum})
}

// Step emits the entry without its state snapshots; they are available
// from the ledger.
func (h *JSONHandler) Step(ctx context.Context, entry domain.LedgerEntry) error {
	ev := &domain.StepEvent{
		Index:    entry.Index,
		Role:     entry.Role,
		Model:    entry.Model,
		Outcome:  entry.Outcome,
		Edge:     entry.Edge,
		Next:     entry.Next,
		Counters: entry.Counters,
		Duration: entry.Duration,
		Changes:  entry.Changes,
		Error:    entry.Error,
	}
	ev.Type = domain.EventStepComplete
	if entry.Outcome == domain.OutcomeFailed {
		ev.Type = domain.EventStepFailed
	}
	ev.RunID = h.runID
	ev.Timestamp = entry.FinishedAt
	return h.emit(JSONEvent{Type: "step", RunID: h.runID, Step: ev, Message: Describe(entry)})
}

func (h *JSONHandler) Finished(ctx context.Context, run *domain.Run, runErr error) error {
	if run == nil {
		return nil
	}
	sum := domain.SummaryOf(run)
	art := domain.ArtifactOf(run)
	ev := JSONEvent{Type: "run_finished", RunID: run.ID, Run: &sum, Artifact: &art}
	if errors.Is(runErr, ErrInterrupted) {
		ev.Type = "run_interrupted"
		ev.Artifact = nil
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	return h.emit(ev)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(JSONEvent{Type: "system", RunID: h.runID, Message: msg})
}
