// Package agents implements the four essay roles on top of a language model
// and a web searcher.
//
// Each agent renders a prompt from the State snapshot it receives, calls the
// model assigned to its role and turns the completion into a partial update.
// The engine owns every counter and completion flag; agents only ever set the
// fields their role may write.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/llm"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// DefaultConcurrency is the number of research queries searched at once.
const DefaultConcurrency = 4

// Config wires the agents to their collaborators.
type Config struct {
	// Completer answers every model call. Use an llm.Router to mix providers.
	Completer llm.Completer
	// Searcher backs the researcher.
	Searcher ports.Searcher
	// MaxTokens caps each completion; zero uses llm.DefaultMaxTokens.
	MaxTokens int64
	// Concurrency bounds parallel searches per research step.
	Concurrency int
	// Now stamps research results. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) withDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
}

// New returns the model-backed agent for every role.
func New(cfg Config) (ports.AgentSet, error) {
	if cfg.Completer == nil {
		return nil, &domain.ConfigurationError{Field: "agents.completer", Reason: "is required"}
	}
	if cfg.Searcher == nil {
		return nil, &domain.ConfigurationError{Field: "agents.searcher", Reason: "is required"}
	}
	cfg.withDefaults()

	m := &model{completer: cfg.Completer, maxTokens: cfg.MaxTokens, logger: cfg.Logger}
	return ports.AgentSet{
		domain.RoleEditor:     &Editor{model: m},
		domain.RoleResearcher: &Researcher{model: m, searcher: cfg.Searcher, concurrency: cfg.Concurrency, now: cfg.Now},
		domain.RoleWriter:     &Writer{model: m},
		domain.RoleCritic:     &Critic{model: m},
	}, nil
}

// model is the completion call shared by all agents.
type model struct {
	completer llm.Completer
	maxTokens int64
	logger    *slog.Logger
}

// complete renders the system and user templates and returns the completion
// text. An empty completion counts as a malformed response.
func (m *model) complete(ctx context.Context, req domain.AgentRequest, system, user string, data any) (string, error) {
	sys, err := render(system, data)
	if err != nil {
		return "", err
	}
	prompt, err := render(user, data)
	if err != nil {
		return "", err
	}

	resp, err := m.completer.Complete(ctx, llm.Request{
		Model:     req.Model,
		System:    sys,
		Prompt:    prompt,
		MaxTokens: m.maxTokens,
	})
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if err != nil {
		return "", err
	}

	m.logger.DebugContext(ctx, "completion",
		"run_id", req.RunID,
		"step", req.Step,
		"role", req.Role,
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text, nil
}
