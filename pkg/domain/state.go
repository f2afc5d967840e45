package domain

import (
	"strings"
	"time"
)

// SearchHit is one web search result backing a research query.
type SearchHit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// ResearchResult is the outcome of a single research query.
// A failed search is recorded in Error rather than failing the step.
type ResearchResult struct {
	Query   string      `json:"query"`
	Hits    []SearchHit `json:"hits,omitempty"`
	Summary string      `json:"summary,omitempty"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// Failed reports whether the search behind this result failed.
func (r ResearchResult) Failed() bool {
	return r.Error != ""
}

// State is the shared record every agent reads and the engine updates.
//
// A State is treated as immutable once it has been handed to an agent or
// recorded in the ledger: the engine always works on a Clone.
type State struct {
	Topic  string `json:"topic"`
	Limits Limits `json:"limits"`
	Models Models `json:"models"`

	Thesis          *string          `json:"thesis"`
	Outline         *string          `json:"outline"`
	ResearchQueries []string         `json:"research_queries"`
	ResearchResults []ResearchResult `json:"research_results"`

	EditingIteration int  `json:"editing_iteration"`
	EditingComplete  bool `json:"editing_complete"`

	Draft            *string `json:"draft"`
	WritingIteration int     `json:"writing_iteration"`
	Feedback         *string `json:"feedback"`
	CritiqueCycle    int     `json:"critique_cycle"`

	EditorDirection *string          `json:"editor_direction"`
	EditorDecision  Decision         `json:"editor_decision"`
	EssayComplete   bool             `json:"essay_complete"`
	Completion      CompletionReason `json:"completion,omitempty"`
}

// NewState validates the run parameters and returns the initial State.
func NewState(topic string, limits Limits, models Models) (*State, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &ConfigurationError{Field: "topic", Reason: "must not be empty"}
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &State{
		Topic:           topic,
		Limits:          limits,
		Models:          models.WithDefaults(),
		ResearchQueries: []string{},
		ResearchResults: []ResearchResult{},
	}, nil
}

// Phase reports whether the run is still planning or already critiquing a draft.
func (s *State) Phase() Phase {
	if s.Draft == nil {
		return PhaseEditing
	}
	return PhaseCritique
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Thesis = cloneString(s.Thesis)
	c.Outline = cloneString(s.Outline)
	c.Draft = cloneString(s.Draft)
	c.Feedback = cloneString(s.Feedback)
	c.EditorDirection = cloneString(s.EditorDirection)

	c.ResearchQueries = append([]string{}, s.ResearchQueries...)
	c.ResearchResults = make([]ResearchResult, len(s.ResearchResults))
	for i, r := range s.ResearchResults {
		r.Hits = append([]SearchHit(nil), r.Hits...)
		c.ResearchResults[i] = r
	}
	return &c
}

// CheckInvariants verifies the structural rules every committed State obeys.
func (s *State) CheckInvariants() error {
	switch {
	case s.EditingComplete && (s.Thesis == nil || s.Outline == nil):
		return invariantf("editing_complete requires thesis and outline")
	case s.Draft != nil && !s.EditingComplete:
		return invariantf("draft present before editing completed")
	case s.EditingIteration < 0 || s.EditingIteration > s.Limits.MaxEditingIterations:
		return invariantf("editing_iteration %d outside [0, %d]", s.EditingIteration, s.Limits.MaxEditingIterations)
	case s.WritingIteration < 0 || s.WritingIteration > s.Limits.MaxWritingIterations:
		return invariantf("writing_iteration %d outside [0, %d]", s.WritingIteration, s.Limits.MaxWritingIterations)
	case s.CritiqueCycle < 0 || s.CritiqueCycle > s.Limits.MaxCritiqueCycles:
		return invariantf("critique_cycle %d outside [0, %d]", s.CritiqueCycle, s.Limits.MaxCritiqueCycles)
	case s.EssayComplete && s.Completion == CompletionNone:
		return invariantf("essay_complete without a completion reason")
	case s.EssayComplete && s.Draft == nil:
		return invariantf("essay_complete without a draft")
	}
	return nil
}

// Value dereferences a nullable field, returning "" for null.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to v. Handy for filling nullable fields.
func Ptr[T any](v T) *T {
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
