package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Provider names an LLM API.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID       string   `json:"id"`
	Display  string   `json:"display"`
	Provider Provider `json:"provider"`
}

// Catalog lists the models offered for each role.
var Catalog = []ModelInfo{
	{ID: "gpt-5.1", Display: "GPT-5.1", Provider: ProviderOpenAI},
	{ID: "gpt-5", Display: "GPT-5", Provider: ProviderOpenAI},
	{ID: "gpt-5-mini", Display: "GPT-5 mini", Provider: ProviderOpenAI},
	{ID: "gpt-5-nano", Display: "GPT-5 nano", Provider: ProviderOpenAI},
	{ID: "gpt-4o", Display: "GPT-4o", Provider: ProviderOpenAI},
	{ID: "gpt-4o-mini", Display: "GPT-4o mini", Provider: ProviderOpenAI},
	{ID: "claude-opus-4-1", Display: "Claude Opus 4.1", Provider: ProviderAnthropic},
	{ID: "claude-sonnet-4-5", Display: "Claude Sonnet 4.5", Provider: ProviderAnthropic},
	{ID: "claude-haiku-4-5", Display: "Claude Haiku 4.5", Provider: ProviderAnthropic},
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ProviderFor maps a model id to its provider. Ids outside the catalog are
// accepted: claude-* goes to Anthropic, everything else to OpenAI.
func ProviderFor(id string) Provider {
	if m, ok := Lookup(id); ok {
		return m.Provider
	}
	if strings.HasPrefix(id, "claude") {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

// Router dispatches each request to the completer of its model's provider.
type Router struct {
	completers map[Provider]Completer
}

// NewRouter creates a Router. Providers without a completer are rejected
// when a request for them arrives and by Validate.
func NewRouter(completers map[Provider]Completer) *Router {
	r := &Router{completers: make(map[Provider]Completer, len(completers))}
	for p, c := range completers {
		if c != nil {
			r.completers[p] = c
		}
	}
	return r
}

// Complete implements Completer.
func (r *Router) Complete(ctx context.Context, req Request) (Response, error) {
	p := ProviderFor(req.Model)
	c, ok := r.completers[p]
	if !ok {
		return Response{}, fmt.Errorf("no %s client configured for model %q", p, req.Model)
	}
	return c.Complete(ctx, req)
}

// Validate checks that every role's model can be served, so a missing API
// key is reported before the run starts rather than at its first step.
func (r *Router) Validate(models domain.Models) error {
	for _, role := range domain.Roles() {
		id := models.For(role)
		if id == "" {
			return &domain.ConfigurationError{Field: "models." + string(role), Reason: "must not be empty"}
		}
		p := ProviderFor(id)
		if _, ok := r.completers[p]; !ok {
			return &domain.ConfigurationError{
				Field:  "models." + string(role),
				Reason: fmt.Sprintf("model %q needs the %s provider, which is not configured", id, p),
			}
		}
	}
	return nil
}
