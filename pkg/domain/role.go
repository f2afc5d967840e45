package domain

import (
	"fmt"
	"strings"
)

// Role identifies one of the four agents.
type Role string

const (
	RoleEditor     Role = "editor"
	RoleResearcher Role = "researcher"
	RoleWriter     Role = "writer"
	RoleCritic     Role = "critic"
)

// Roles returns the four roles in topology order.
func Roles() []Role {
	return []Role{RoleEditor, RoleResearcher, RoleWriter, RoleCritic}
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEditor, RoleResearcher, RoleWriter, RoleCritic:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Title returns the display name of the role ("Editor").
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Decision is the editor's verdict after reviewing a critique.
// It is transient: the engine replaces it on every editor step.
type Decision string

const (
	DecisionNone         Decision = ""
	DecisionResearch     Decision = "research"
	DecisionPassToWriter Decision = "pass_to_writer"
	DecisionRevise       Decision = "revise"
	DecisionApprove      Decision = "approve"
)

// ParseDecision converts a string into a Decision, rejecting unknown values.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionNone, DecisionResearch, DecisionPassToWriter, DecisionRevise, DecisionApprove:
		return d, nil
	}
	return DecisionNone, fmt.Errorf("unknown editor decision %q", s)
}

// Phase distinguishes the planning loop from the critique loop.
type Phase string

const (
	PhaseEditing  Phase = "editing"
	PhaseCritique Phase = "critique"
)

// CompletionReason records why essay_complete became true.
type CompletionReason string

const (
	CompletionNone              CompletionReason = ""
	CompletionApproved          CompletionReason = "approved"
	CompletionCritiqueExhausted CompletionReason = "critique_cycles_exhausted"
	CompletionWritingExhausted  CompletionReason = "writing_iterations_exhausted"
)

// Edge names the routing rule that selected the next role.
type Edge string

const (
	EdgeStart            Edge = "start"
	EdgeDraftReview      Edge = "draft_review"
	EdgeCritiqueReview   Edge = "critique_review"
	EdgeResearchReturn   Edge = "research_return"
	EdgeResearchHandoff  Edge = "research_handoff"
	EdgeEditingComplete  Edge = "editing_complete"
	EdgeEditingResearch  Edge = "editing_research"
	EdgeDecisionResearch Edge = "decision_research"
	EdgeDecisionRevise   Edge = "decision_revise"
	EdgeEssayComplete    Edge = "essay_complete"
)
