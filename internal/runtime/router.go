package runtime

import (
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Route is the router's verdict for the next step.
type Route struct {
	// Next is the role to invoke. It is empty when Terminate is set.
	Next      domain.Role
	Terminate bool
	Edge      domain.Edge

	// ForceDecision, when set, overwrites editor_decision before the next
	// step. It carries the research handoff to the writer.
	ForceDecision domain.Decision
}

func to(role domain.Role, edge domain.Edge) Route {
	return Route{Next: role, Edge: edge}
}

func terminate() Route {
	return Route{Terminate: true, Edge: domain.EdgeEssayComplete}
}

// Decide picks the next role from the State and History alone.
// It never mutates its inputs and has no other dependencies, so the same
// inputs always produce the same Route.
func Decide(state *domain.State, history domain.History) (Route, error) {
	if history.Len() == 0 {
		return to(domain.RoleEditor, domain.EdgeStart), nil
	}

	defect := func(reason string) (Route, error) {
		return Route{}, &domain.RoutingDefectError{
			Last:     history.Last(2),
			Phase:    state.Phase(),
			Decision: state.EditorDecision,
			Reason:   reason,
		}
	}

	last := history.Last(1)[0]
	switch last {
	case domain.RoleWriter:
		return to(domain.RoleCritic, domain.EdgeDraftReview), nil

	case domain.RoleCritic:
		return to(domain.RoleEditor, domain.EdgeCritiqueReview), nil

	case domain.RoleResearcher:
		if state.Draft == nil {
			return to(domain.RoleEditor, domain.EdgeResearchReturn), nil
		}
		if state.EssayComplete {
			return terminate(), nil
		}
		// Research commissioned during a critique review goes straight to
		// the writer, whatever decision is still recorded.
		if history.LastIs(domain.RoleEditor, domain.RoleResearcher) {
			r := to(domain.RoleWriter, domain.EdgeResearchHandoff)
			r.ForceDecision = domain.DecisionPassToWriter
			return r, nil
		}
		return defect("research during critique was not commissioned by the editor")

	case domain.RoleEditor:
		if state.Draft == nil {
			if state.EditingComplete {
				return to(domain.RoleWriter, domain.EdgeEditingComplete), nil
			}
			return to(domain.RoleResearcher, domain.EdgeEditingResearch), nil
		}
		if state.EssayComplete {
			return terminate(), nil
		}
		switch state.EditorDecision {
		case domain.DecisionResearch:
			return to(domain.RoleResearcher, domain.EdgeDecisionResearch), nil
		case domain.DecisionRevise, domain.DecisionPassToWriter:
			return to(domain.RoleWriter, domain.EdgeDecisionRevise), nil
		case domain.DecisionApprove:
			return terminate(), nil
		case domain.DecisionNone:
			return defect("editor review produced no decision")
		default:
			return defect("unknown editor decision")
		}
	}

	return defect("unknown role in history")
}
