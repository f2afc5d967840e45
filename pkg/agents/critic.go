package agents

import (
	"context"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Critic evaluates the current draft.
type Critic struct {
	model *model
}

type criticData struct {
	Draft          string
	Outline        string
	Thesis         string
	MaxEssayLength int
	WordCount      int
	Iteration      int
	MaxIterations  int
}

func (c *Critic) Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	if s.Draft == nil {
		return domain.Update{}, domain.Malformed("critic invoked without a draft")
	}
	draft := *s.Draft
	data := criticData{
		Draft:          draft,
		Outline:        domain.Value(s.Outline),
		Thesis:         domain.Value(s.Thesis),
		MaxEssayLength: s.Limits.MaxEssayLength,
		WordCount:      wordCount(draft),
		Iteration:      s.WritingIteration,
		MaxIterations:  s.Limits.MaxWritingIterations,
	}
	text, err := c.model.complete(ctx, req, "critic_system.tmpl", "critic_user.tmpl", data)
	if err != nil {
		return domain.Update{}, err
	}

	feedback := ParseCritique(text).Feedback()
	if feedback == "" {
		// Unstructured critique; pass it on verbatim.
		feedback = strings.TrimSpace(text)
	}
	if feedback == "" {
		return domain.Update{}, domain.Malformed("critic returned no feedback")
	}
	return domain.Update{Feedback: domain.Ptr(feedback)}, nil
}
