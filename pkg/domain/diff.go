package domain

import (
	"reflect"
)

// Engine-owned fields. They appear in diffs but no role may set them.
const (
	FieldEditingIteration Field = "editing_iteration"
	FieldWritingIteration Field = "writing_iteration"
	FieldCritiqueCycle    Field = "critique_cycle"
	FieldEssayComplete    Field = "essay_complete"
	FieldCompletion       Field = "completion"
)

// StateDiff represents the changes a step made to the State.
// It is designed to be serialized to JSON for ledger views and event streams.
type StateDiff struct {
	// Values holds the new value of every changed scalar field.
	Values map[Field]any `json:"values,omitempty"`

	// ResearchAppended contains the research results added by the step.
	// research_results is append-only so only the tail is sent.
	ResearchAppended []ResearchResult `json:"research_appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{Values: make(map[Field]any)}

	newVals := scalarFields(newState)
	var oldVals map[Field]any
	if oldState != nil {
		oldVals = scalarFields(oldState)
	}
	for f, v := range newVals {
		if old, ok := oldVals[f]; !ok || !reflect.DeepEqual(old, v) {
			diff.Values[f] = v
		}
	}

	oldLen := 0
	if oldState != nil {
		oldLen = len(oldState.ResearchResults)
	}
	if len(newState.ResearchResults) > oldLen {
		diff.ResearchAppended = append([]ResearchResult(nil), newState.ResearchResults[oldLen:]...)
	}

	if diff.IsEmpty() {
		return nil
	}
	if len(diff.Values) == 0 {
		diff.Values = nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d == nil || (len(d.Values) == 0 && len(d.ResearchAppended) == 0)
}

// Has reports whether f changed.
func (d *StateDiff) Has(f Field) bool {
	if d == nil {
		return false
	}
	if f == FieldResearchResults {
		return len(d.ResearchAppended) > 0
	}
	_, ok := d.Values[f]
	return ok
}

func scalarFields(s *State) map[Field]any {
	return map[Field]any{
		FieldThesis:           s.Thesis,
		FieldOutline:          s.Outline,
		FieldResearchQueries:  append([]string{}, s.ResearchQueries...),
		FieldEditingIteration: s.EditingIteration,
		FieldEditingComplete:  s.EditingComplete,
		FieldDraft:            s.Draft,
		FieldWritingIteration: s.WritingIteration,
		FieldFeedback:         s.Feedback,
		FieldCritiqueCycle:    s.CritiqueCycle,
		FieldEditorDirection:  s.EditorDirection,
		FieldEditorDecision:   s.EditorDecision,
		FieldEssayComplete:    s.EssayComplete,
		FieldCompletion:       s.Completion,
	}
}
