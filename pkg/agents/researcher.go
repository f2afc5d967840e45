package agents

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// Researcher searches the web for every pending query and summarises the
// findings. A failed search is recorded on its result; a failed summary
// fails the step.
type Researcher struct {
	model       *model
	searcher    ports.Searcher
	concurrency int
	now         func() time.Time
}

type researchData struct {
	Topic    string
	Thesis   string
	Query    string
	Research string
}

func (r *Researcher) Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	queries := s.ResearchQueries
	if len(queries) > s.Limits.MaxQueries {
		queries = queries[:s.Limits.MaxQueries]
	}

	results := make([]domain.ResearchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			res, err := r.research(gctx, req, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Update{}, err
	}
	return domain.Update{ResearchResults: results}, nil
}

func (r *Researcher) research(ctx context.Context, req domain.AgentRequest, query string) (domain.ResearchResult, error) {
	s := req.State
	res := domain.ResearchResult{Query: query}

	hits, err := r.searcher.Search(ctx, query, s.Limits.MaxResultsPerQuery)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		r.model.logger.WarnContext(ctx, "search failed", "run_id", req.RunID, "query", query, "error", err)
		res.Error = err.Error()
		res.At = r.now()
		return res, nil
	}
	if len(hits) > s.Limits.MaxResultsPerQuery {
		hits = hits[:s.Limits.MaxResultsPerQuery]
	}
	res.Hits = hits

	if len(hits) > 0 {
		data := researchData{
			Topic:    s.Topic,
			Thesis:   domain.Value(s.Thesis),
			Query:    query,
			Research: formatHits(hits),
		}
		summary, err := r.model.complete(ctx, req, "researcher_system.tmpl", "researcher_user.tmpl", data)
		if err != nil {
			return res, err
		}
		res.Summary = summary
	}
	res.At = r.now()
	return res, nil
}
