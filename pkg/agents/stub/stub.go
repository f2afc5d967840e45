// Package stub provides deterministic stand-in agents.
//
// They produce plausible content without calling any model, which makes them
// suitable for tests, demos and offline runs (`essay run --offline`). Every
// decision is derived from the State they receive, so the same State always
// yields the same update.
package stub

import (
	"context"
	"fmt"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// Editor plans the essay and reviews critiques.
type Editor struct {
	// ReadyAfter is the planning iteration at which the editor declares the
	// outline sufficient. Values below 1 mean the first iteration.
	ReadyAfter int
	// Queries is the number of research queries per planning step (default 2).
	Queries int
	// Decisions are used for critique reviews, indexed by critique cycle.
	// Reviews beyond the list use Fallback (default approve).
	Decisions []domain.Decision
	Fallback  domain.Decision
}

func (e Editor) Execute(_ context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	if s.Draft == nil {
		iteration := s.EditingIteration + 1
		ready := iteration >= e.ReadyAfter
		upd := domain.Update{
			Thesis:          domain.Ptr(fmt.Sprintf("A considered thesis on %s (revision %d)", s.Topic, iteration)),
			Outline:         domain.Ptr(outline(s.Topic)),
			EditingComplete: domain.Ptr(ready),
		}
		if ready {
			upd.ResearchQueries = []string{}
		} else {
			upd.ResearchQueries = queries(s.Topic, iteration, e.queryCount(s.Limits))
		}
		return upd, nil
	}

	decision := e.Fallback
	if decision == domain.DecisionNone {
		decision = domain.DecisionApprove
	}
	if s.CritiqueCycle < len(e.Decisions) {
		decision = e.Decisions[s.CritiqueCycle]
	}
	upd := domain.Update{
		EditorDecision:  domain.Ptr(decision),
		EditorDirection: domain.Ptr(fmt.Sprintf("Address the critique of cycle %d.", s.CritiqueCycle+1)),
	}
	if decision == domain.DecisionResearch {
		upd.ResearchQueries = queries(s.Topic, s.CritiqueCycle+100, e.queryCount(s.Limits))
	}
	return upd, nil
}

func (e Editor) queryCount(l domain.Limits) int {
	n := e.Queries
	if n <= 0 {
		n = 2
	}
	if n > l.MaxQueries {
		n = l.MaxQueries
	}
	return n
}

// Researcher answers every pending query with canned hits.
type Researcher struct {
	// Hits per query (default 1, capped at the run limit).
	Hits int
}

func (r Researcher) Execute(_ context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	hits := r.Hits
	if hits <= 0 {
		hits = 1
	}
	if hits > s.Limits.MaxResultsPerQuery {
		hits = s.Limits.MaxResultsPerQuery
	}

	results := make([]domain.ResearchResult, 0, len(s.ResearchQueries))
	for _, q := range s.ResearchQueries {
		res := domain.ResearchResult{Query: q, Summary: "Findings for " + q}
		for i := 0; i < hits; i++ {
			res.Hits = append(res.Hits, domain.SearchHit{
				Title:   fmt.Sprintf("%s, source %d", q, i+1),
				URL:     fmt.Sprintf("https://example.org/%s/%d", slug(q), i+1),
				Content: "Evidence about " + q,
			})
		}
		results = append(results, res)
	}
	return domain.Update{ResearchResults: results}, nil
}

// Writer produces numbered drafts.
type Writer struct{}

func (Writer) Execute(_ context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Topic)
	fmt.Fprintf(&b, "Draft %d. %s\n\n", s.WritingIteration+1, domain.Value(s.Thesis))
	if d := domain.Value(s.EditorDirection); d != "" {
		fmt.Fprintf(&b, "Revised following direction: %s\n\n", d)
	}
	for _, r := range s.ResearchResults {
		if !r.Failed() {
			fmt.Fprintf(&b, "- %s\n", r.Summary)
		}
	}
	return domain.Update{Draft: domain.Ptr(b.String())}, nil
}

// Critic returns feedback naming the draft it read.
type Critic struct{}

func (Critic) Execute(_ context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	words := domain.WordCount(domain.Value(s.Draft))
	return domain.Update{Feedback: domain.Ptr(fmt.Sprintf(
		"EVALUATION: draft %d reads well.\nLENGTH: %d / %d words",
		s.WritingIteration, words, s.Limits.MaxEssayLength))}, nil
}

// Agents returns a complete set: the editor is ready after one iteration and
// approves the first draft.
func Agents() ports.AgentSet {
	return With(Editor{})
}

// With returns a complete set using editor and the default other roles.
func With(editor Editor) ports.AgentSet {
	return ports.AgentSet{
		domain.RoleEditor:     editor,
		domain.RoleResearcher: Researcher{},
		domain.RoleWriter:     Writer{},
		domain.RoleCritic:     Critic{},
	}
}

// Relentless returns agents that always ask for more work: the editor never
// declares the outline ready and always commissions research after a
// critique. Runs with these agents only end through the iteration ceilings.
func Relentless() ports.AgentSet {
	return With(Editor{ReadyAfter: 1 << 30, Fallback: domain.DecisionResearch})
}

func outline(topic string) string {
	return fmt.Sprintf("I. Introduction to %s\nII. Evidence\nIII. Counterarguments\nIV. Conclusion", topic)
}

func queries(topic string, round, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s: question %d.%d", topic, round, i+1)
	}
	return out
}

func slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
