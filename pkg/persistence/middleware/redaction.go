package middleware

import (
	"context"
	"regexp"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultRedactionPatterns match e-mail addresses and phone numbers, the
// personal data most often scraped along with web search results.
var DefaultRedactionPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s().\-]{7,}\d`,
}

type redactionMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks text matching the
// patterns inside stored research results (hit content, titles, summaries),
// in the run state and in every ledger snapshot. Runs in memory are not
// modified. Loading returns the redacted form.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "store.redact", Reason: err.Error()}
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, run *domain.Run) error {
	cloned := run.Clone()
	cloned.State = m.redactState(cloned.State)

	if run.Ledger != nil {
		entries := run.Ledger.Entries()
		for i := range entries {
			entries[i].Input = m.redactState(entries[i].Input.Clone())
			entries[i].Output = m.redactState(entries[i].Output.Clone())
			entries[i].Changes = m.redactDiff(entries[i].Changes)
		}
		cloned.Ledger = domain.NewLedger(entries...)
	}

	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, runID string) (*domain.Run, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// redactState masks s in place; s must be a private copy.
func (m *redactionMiddleware) redactState(s *domain.State) *domain.State {
	if s == nil {
		return nil
	}
	m.redactResults(s.ResearchResults)
	return s
}

func (m *redactionMiddleware) redactDiff(d *domain.StateDiff) *domain.StateDiff {
	if d == nil || len(d.ResearchAppended) == 0 {
		return d
	}
	c := *d
	c.ResearchAppended = make([]domain.ResearchResult, len(d.ResearchAppended))
	for i, r := range d.ResearchAppended {
		r.Hits = append([]domain.SearchHit(nil), r.Hits...)
		c.ResearchAppended[i] = r
	}
	m.redactResults(c.ResearchAppended)
	return &c
}

func (m *redactionMiddleware) redactResults(results []domain.ResearchResult) {
	for i := range results {
		results[i].Summary = m.mask(results[i].Summary)
		for j := range results[i].Hits {
			results[i].Hits[j].Title = m.mask(results[i].Hits[j].Title)
			results[i].Hits[j].Content = m.mask(results[i].Hits[j].Content)
		}
	}
}

func (m *redactionMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, Mask)
	}
	return text
}
