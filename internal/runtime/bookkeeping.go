package runtime

import (
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// merge applies an agent's partial update to a copy of prev and performs the
// engine-owned bookkeeping: counters, forced completion, feedback consumption
// and query clearing. prev is never modified.
func merge(prev *domain.State, role domain.Role, upd domain.Update) (*domain.State, error) {
	if err := upd.Authorize(role); err != nil {
		return nil, err
	}

	next := prev.Clone()
	limits := prev.Limits

	switch role {
	case domain.RoleEditor:
		if err := checkQueries(upd.ResearchQueries, limits); err != nil {
			return nil, err
		}
		applyEditor(next, upd)
		if prev.Phase() == domain.PhaseEditing {
			next.EditingIteration++
			if next.EditingIteration >= limits.MaxEditingIterations || len(next.ResearchQueries) == 0 {
				next.EditingComplete = true
			}
			break
		}

		next.CritiqueCycle++
		next.Feedback = nil
		switch {
		case next.EditorDecision == domain.DecisionApprove:
			complete(next, domain.CompletionApproved)
		case next.CritiqueCycle >= limits.MaxCritiqueCycles:
			complete(next, domain.CompletionCritiqueExhausted)
		case next.WritingIteration >= limits.MaxWritingIterations:
			complete(next, domain.CompletionWritingExhausted)
		}

	case domain.RoleResearcher:
		if err := checkResults(upd.ResearchResults, limits); err != nil {
			return nil, err
		}
		next.ResearchResults = append(next.ResearchResults, upd.ResearchResults...)
		next.ResearchQueries = []string{}

	case domain.RoleWriter:
		if upd.Draft == nil || strings.TrimSpace(*upd.Draft) == "" {
			return nil, domain.Malformed("writer returned no draft")
		}
		next.Draft = domain.Ptr(*upd.Draft)
		next.WritingIteration++

	case domain.RoleCritic:
		if upd.Feedback == nil || strings.TrimSpace(*upd.Feedback) == "" {
			return nil, domain.Malformed("critic returned no feedback")
		}
		next.Feedback = domain.Ptr(*upd.Feedback)

	default:
		return nil, domain.Malformed("unknown role %q", role)
	}

	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}
	return next, nil
}

func applyEditor(s *domain.State, upd domain.Update) {
	if upd.Thesis != nil {
		s.Thesis = domain.Ptr(*upd.Thesis)
	}
	if upd.Outline != nil {
		s.Outline = domain.Ptr(*upd.Outline)
	}
	if upd.ResearchQueries != nil {
		s.ResearchQueries = append([]string{}, upd.ResearchQueries...)
	}
	if upd.EditorDirection != nil {
		s.EditorDirection = domain.Ptr(*upd.EditorDirection)
	}
	if upd.EditingComplete != nil {
		s.EditingComplete = *upd.EditingComplete
	}
	// The decision is transient: a stale verdict never survives an editor step.
	s.EditorDecision = domain.DecisionNone
	if upd.EditorDecision != nil {
		s.EditorDecision = *upd.EditorDecision
	}
}

func complete(s *domain.State, reason domain.CompletionReason) {
	s.EssayComplete = true
	s.Completion = reason
}

func checkQueries(queries []string, limits domain.Limits) error {
	if len(queries) > limits.MaxQueries {
		return domain.Malformed("%d research queries exceed the limit of %d", len(queries), limits.MaxQueries)
	}
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			return domain.Malformed("empty research query")
		}
	}
	return nil
}

func checkResults(results []domain.ResearchResult, limits domain.Limits) error {
	if len(results) > limits.MaxQueries {
		return domain.Malformed("%d research results exceed the limit of %d", len(results), limits.MaxQueries)
	}
	for _, r := range results {
		if r.Query == "" {
			return domain.Malformed("research result without a query")
		}
		if len(r.Hits) > limits.MaxResultsPerQuery {
			return domain.Malformed("query %q returned %d hits, limit is %d", r.Query, len(r.Hits), limits.MaxResultsPerQuery)
		}
	}
	return nil
}

// ceilingReached reports whether invoking role would push a counter past its
// limit.
func ceilingReached(s *domain.State, role domain.Role) bool {
	switch role {
	case domain.RoleEditor:
		if s.Phase() == domain.PhaseEditing {
			return s.EditingIteration >= s.Limits.MaxEditingIterations
		}
		return s.CritiqueCycle >= s.Limits.MaxCritiqueCycles
	case domain.RoleWriter:
		return s.WritingIteration >= s.Limits.MaxWritingIterations
	}
	return false
}
