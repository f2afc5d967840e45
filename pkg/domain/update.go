package domain

import "sort"

// Field is the canonical (JSON) name of a State field.
type Field string

const (
	FieldThesis          Field = "thesis"
	FieldOutline         Field = "outline"
	FieldResearchQueries Field = "research_queries"
	FieldResearchResults Field = "research_results"
	FieldEditingComplete Field = "editing_complete"
	FieldDraft           Field = "draft"
	FieldFeedback        Field = "feedback"
	FieldEditorDirection Field = "editor_direction"
	FieldEditorDecision  Field = "editor_decision"
)

// FieldSet is a set of fields a role may write.
type FieldSet map[Field]struct{}

// Has reports whether f belongs to the set.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the members in lexical order.
func (s FieldSet) Sorted() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

var permitted = map[Role]FieldSet{
	RoleEditor: newFieldSet(
		FieldThesis,
		FieldOutline,
		FieldResearchQueries,
		FieldEditorDirection,
		FieldEditorDecision,
		FieldEditingComplete,
	),
	RoleResearcher: newFieldSet(FieldResearchResults),
	RoleWriter:     newFieldSet(FieldDraft),
	RoleCritic:     newFieldSet(FieldFeedback),
}

// Permitted returns the fields role is allowed to set. Unknown roles get an
// empty set.
func Permitted(role Role) FieldSet {
	if s, ok := permitted[role]; ok {
		return s
	}
	return FieldSet{}
}

// Update is a partial update returned by an agent.
// Nil pointers and nil slices mean "not set". Counters, history and the
// completion flags are not representable: only the engine writes them.
type Update struct {
	Thesis  *string `json:"thesis,omitempty"`
	Outline *string `json:"outline,omitempty"`

	// ResearchQueries replaces the pending queries when non-nil.
	ResearchQueries []string `json:"research_queries,omitempty"`
	// ResearchResults are appended to the existing results when non-nil.
	ResearchResults []ResearchResult `json:"research_results,omitempty"`

	EditingComplete *bool     `json:"editing_complete,omitempty"`
	Draft           *string   `json:"draft,omitempty"`
	Feedback        *string   `json:"feedback,omitempty"`
	EditorDirection *string   `json:"editor_direction,omitempty"`
	EditorDecision  *Decision `json:"editor_decision,omitempty"`
}

// Fields lists the fields this update sets.
func (u Update) Fields() []Field {
	var out []Field
	if u.Thesis != nil {
		out = append(out, FieldThesis)
	}
	if u.Outline != nil {
		out = append(out, FieldOutline)
	}
	if u.ResearchQueries != nil {
		out = append(out, FieldResearchQueries)
	}
	if u.ResearchResults != nil {
		out = append(out, FieldResearchResults)
	}
	if u.EditingComplete != nil {
		out = append(out, FieldEditingComplete)
	}
	if u.Draft != nil {
		out = append(out, FieldDraft)
	}
	if u.Feedback != nil {
		out = append(out, FieldFeedback)
	}
	if u.EditorDirection != nil {
		out = append(out, FieldEditorDirection)
	}
	if u.EditorDecision != nil {
		out = append(out, FieldEditorDecision)
	}
	return out
}

// Authorize returns a FieldAuthorizationError for the first field role may
// not write.
func (u Update) Authorize(role Role) error {
	allowed := Permitted(role)
	for _, f := range u.Fields() {
		if !allowed.Has(f) {
			return &FieldAuthorizationError{Role: role, Field: f}
		}
	}
	return nil
}
