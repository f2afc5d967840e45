package agents

import (
	"context"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Writer produces the first draft from the outline and research, then
// revises it following the editor's direction.
type Writer struct {
	model *model
}

type writerData struct {
	Topic          string
	Thesis         string
	Outline        string
	Draft          string
	Direction      string
	Research       string
	MaxEssayLength int
	Iteration      int
	MaxIterations  int
}

func (w *Writer) Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	s := req.State
	data := writerData{
		Topic:          s.Topic,
		Thesis:         domain.Value(s.Thesis),
		Outline:        domain.Value(s.Outline),
		Draft:          domain.Value(s.Draft),
		Direction:      domain.Value(s.EditorDirection),
		MaxEssayLength: s.Limits.MaxEssayLength,
		Iteration:      s.WritingIteration + 1,
		MaxIterations:  s.Limits.MaxWritingIterations,
	}

	tmpl := "writer_draft.tmpl"
	if s.Draft == nil {
		data.Research = formatResearch(s.ResearchResults)
	} else {
		tmpl = "writer_revision.tmpl"
		data.Research = "No new research."
		if fresh := req.Fresh(); len(fresh) > 0 {
			data.Research = formatResearch(fresh)
		}
	}

	text, err := w.model.complete(ctx, req, "writer_system.tmpl", tmpl, data)
	if err != nil {
		return domain.Update{}, err
	}
	draft := strings.TrimSpace(text)
	if draft == "" {
		return domain.Update{}, domain.Malformed("writer returned an empty draft")
	}
	return domain.Update{Draft: domain.Ptr(draft)}, nil
}
