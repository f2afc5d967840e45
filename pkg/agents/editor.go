package agents

import (
	"context"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Editor plans the essay while no draft exists and reviews critiques once one
// does.
type Editor struct {
	model *model
}

type editorPlanData struct {
	Topic         string
	Iteration     int
	MaxIterations int
	MaxQueries    int
	Research      string
}

type editorReviewData struct {
	Topic          string
	Thesis         string
	Outline        string
	Draft          string
	WordCount      int
	MaxEssayLength int
	Feedback       string
	Cycle          int
	MaxCycles      int
	Drafts         int
	MaxDrafts      int
	FinalCycle     bool
	MaxQueries     int
}

func (e *Editor) Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	if req.State.Draft == nil {
		return e.plan(ctx, req)
	}
	return e.review(ctx, req)
}

func (e *Editor) plan(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	data := editorPlanData{
		Topic:         s.Topic,
		Iteration:     s.EditingIteration + 1,
		MaxIterations: s.Limits.MaxEditingIterations,
		MaxQueries:    s.Limits.MaxQueries,
		Research:      formatResearch(s.ResearchResults),
	}
	text, err := e.model.complete(ctx, req, "editor_system.tmpl", "editor_plan.tmpl", data)
	if err != nil {
		return domain.Update{}, err
	}
	p, err := ParsePlan(text)
	if err != nil {
		return domain.Update{}, err
	}

	queries := capQueries(p.Queries, s.Limits.MaxQueries)
	ready := p.Ready || len(queries) == 0
	if ready {
		queries = []string{}
	}
	return domain.Update{
		Thesis:          domain.Ptr(p.Thesis),
		Outline:         domain.Ptr(p.Outline),
		ResearchQueries: queries,
		EditingComplete: domain.Ptr(ready),
	}, nil
}

func (e *Editor) review(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	draft := domain.Value(s.Draft)
	cycle := s.CritiqueCycle + 1
	data := editorReviewData{
		Topic:          s.Topic,
		Thesis:         domain.Value(s.Thesis),
		Outline:        domain.Value(s.Outline),
		Draft:          draft,
		WordCount:      wordCount(draft),
		MaxEssayLength: s.Limits.MaxEssayLength,
		Feedback:       domain.Value(s.Feedback),
		Cycle:          cycle,
		MaxCycles:      s.Limits.MaxCritiqueCycles,
		Drafts:         s.WritingIteration,
		MaxDrafts:      s.Limits.MaxWritingIterations,
		FinalCycle:     cycle >= s.Limits.MaxCritiqueCycles || s.WritingIteration >= s.Limits.MaxWritingIterations,
		MaxQueries:     s.Limits.MaxQueries,
	}
	text, err := e.model.complete(ctx, req, "editor_system.tmpl", "editor_review.tmpl", data)
	if err != nil {
		return domain.Update{}, err
	}
	r, err := ParseReview(text)
	if err != nil {
		return domain.Update{}, err
	}

	upd := domain.Update{
		EditorDecision:  domain.Ptr(r.Decision),
		EditorDirection: domain.Ptr(r.Direction),
	}
	if r.Decision == domain.DecisionResearch {
		queries := capQueries(r.Queries, s.Limits.MaxQueries)
		if len(queries) == 0 {
			// Research with nothing to search for is a revision.
			upd.EditorDecision = domain.Ptr(domain.DecisionRevise)
		} else {
			upd.ResearchQueries = queries
		}
	}
	if t := placeholderFree(r.Thesis); t != "" {
		upd.Thesis = domain.Ptr(t)
	}
	if o := placeholderFree(r.Outline); o != "" {
		upd.Outline = domain.Ptr(o)
	}
	return upd, nil
}

// capQueries drops blank, placeholder and duplicate queries and keeps at most
// limit of them.
func capQueries(queries []string, limit int) []string {
	out := make([]string, 0, len(queries))
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || strings.HasPrefix(q, "[") || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

// placeholderFree returns s unless the model echoed a bracketed template
// placeholder or declined to change the value.
func placeholderFree(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "["):
		return ""
	case strings.EqualFold(s, "unchanged"), strings.EqualFold(s, "n/a"), strings.EqualFold(s, "none"):
		return ""
	}
	return s
}
