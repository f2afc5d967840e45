package domain

import (
	"errors"
	"strings"
	"time"
)

// RunStatus is the engine position of a run.
type RunStatus string

const (
	RunEditing    RunStatus = "editing"
	RunWriting    RunStatus = "writing"
	RunTerminated RunStatus = "terminated"
	RunFailed     RunStatus = "failed"
)

// Finished reports whether the run can no longer step.
func (s RunStatus) Finished() bool {
	return s == RunTerminated || s == RunFailed
}

// StatusFor maps a State phase onto the active run status.
func StatusFor(s *State) RunStatus {
	if s.Phase() == PhaseCritique {
		return RunWriting
	}
	return RunEditing
}

// RunError is the persisted form of the error that failed a run.
type RunError struct {
	Type    string         `json:"type"`
	Kind    InvocationKind `json:"kind,omitempty"`
	Role    Role           `json:"role,omitempty"`
	Message string         `json:"message"`
}

// Error types recorded in RunError.Type.
const (
	ErrorTypeAgentInvocation = "agent_invocation"
	ErrorTypeRoutingDefect   = "routing_defect"
	ErrorTypeConfiguration   = "configuration"
	ErrorTypeInternal        = "internal"
)

// NewRunError converts err into its persisted form.
func NewRunError(err error) *RunError {
	if err == nil {
		return nil
	}
	re := &RunError{Type: ErrorTypeInternal, Message: err.Error()}

	var inv *AgentInvocationError
	var route *RoutingDefectError
	var conf *ConfigurationError
	switch {
	case errors.As(err, &inv):
		re.Type = ErrorTypeAgentInvocation
		re.Kind = inv.Kind
		re.Role = inv.Role
	case errors.As(err, &route):
		re.Type = ErrorTypeRoutingDefect
	case errors.As(err, &conf):
		re.Type = ErrorTypeConfiguration
	}
	return re
}

// Run is the persisted aggregate of one essay: its State, History, the next
// role to invoke and the ledger of every step so far.
type Run struct {
	ID      string    `json:"id"`
	Status  RunStatus `json:"status"`
	State   *State    `json:"state,omitempty"`
	History History   `json:"history"`
	Next    Role      `json:"next,omitempty"`
	Ledger  *Ledger   `json:"ledger,omitempty"`
	Error   *RunError `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries the encrypted form of the run when stored through an
	// encrypting middleware. It is empty for plain runs.
	Sealed string `json:"sealed,omitempty"`
}

// Clone copies the run. State snapshots inside ledger entries are shared:
// they are immutable once recorded.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.State = r.State.Clone()
	c.History = append(History(nil), r.History...)
	if r.Ledger != nil {
		c.Ledger = NewLedger(r.Ledger.Entries()...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// Artifact is the output of a run. Complete is false for runs that did not
// reach essay_complete; their draft must not be presented as final.
type Artifact struct {
	RunID      string           `json:"run_id"`
	Topic      string           `json:"topic"`
	Thesis     string           `json:"thesis,omitempty"`
	Essay      string           `json:"essay"`
	Complete   bool             `json:"complete"`
	Completion CompletionReason `json:"completion,omitempty"`
	Status     RunStatus        `json:"status"`
	Counters   Counters         `json:"counters"`
	Steps      int              `json:"steps"`
	WordCount  int              `json:"word_count"`
}

// ArtifactOf builds the artifact for run.
func ArtifactOf(run *Run) Artifact {
	a := Artifact{RunID: run.ID, Status: run.Status, Steps: run.History.Len()}
	if s := run.State; s != nil {
		a.Topic = s.Topic
		a.Thesis = Value(s.Thesis)
		a.Essay = Value(s.Draft)
		a.Complete = s.EssayComplete && run.Status == RunTerminated
		a.Completion = s.Completion
		a.Counters = CountersOf(s)
		a.WordCount = WordCount(a.Essay)
	}
	return a
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// RunSummary is the list view of a run.
type RunSummary struct {
	ID         string           `json:"id"`
	Status     RunStatus        `json:"status"`
	Topic      string           `json:"topic"`
	Next       Role             `json:"next,omitempty"`
	Steps      int              `json:"steps"`
	Completion CompletionReason `json:"completion,omitempty"`
	Error      *RunError        `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SummaryOf builds the summary of run.
func SummaryOf(run *Run) RunSummary {
	sum := RunSummary{
		ID:        run.ID,
		Status:    run.Status,
		Next:      run.Next,
		Steps:     run.History.Len(),
		Error:     run.Error,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
	if run.State != nil {
		sum.Topic = run.State.Topic
		sum.Completion = run.State.Completion
	}
	return sum
}
