package ports

import (
	"context"
	"fmt"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Agent performs the work of one role for a single step.
//
// Execute receives an immutable State snapshot and returns a partial update
// restricted to the role's allowed fields. Any error fails the run; wrap
// domain.ErrMalformedResponse for unusable output.
type Agent interface {
	Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, req domain.AgentRequest) (domain.Update, error)

// Execute calls f.
func (f AgentFunc) Execute(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
	return f(ctx, req)
}

// AgentSet binds every role to its agent.
type AgentSet map[domain.Role]Agent

// Validate ensures every role has an agent.
func (s AgentSet) Validate() error {
	for _, r := range domain.Roles() {
		if s[r] == nil {
			return &domain.ConfigurationError{Field: "agents", Reason: fmt.Sprintf("missing %s agent", r)}
		}
	}
	return nil
}

// Searcher runs one web search query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error)
}
