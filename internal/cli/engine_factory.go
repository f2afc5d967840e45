package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/internal/config"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/file"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/memory"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/redis"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/llm"
	"github.com/markgewhite/agentic-essay-writer/pkg/observability"
	"github.com/markgewhite/agentic-essay-writer/pkg/persistence/middleware"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
	"github.com/markgewhite/agentic-essay-writer/pkg/search"
)

// EngineOptions are the per-invocation switches of the CLI.
type EngineOptions struct {
	// Offline drives the deterministic stub agents: no API keys needed.
	Offline bool
	// Metrics, when set, receives the engine's lifecycle events.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Stack is an engine together with the resources it holds.
type Stack struct {
	Engine *essay.Engine
	Store  ports.RunStore

	closers []func() error
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewStack builds the engine described by cfg.
func NewStack(cfg *config.Config, opts EngineOptions) (*Stack, error) {
	logger := opts.Logger
	if logger == nil {
		logger = createLogger(cfg)
	}

	stack := &Stack{}
	store, locker, err := newStore(cfg, stack)
	if err != nil {
		return nil, err
	}
	stack.Store = store

	agentSet, err := newAgents(cfg, opts.Offline, logger)
	if err != nil {
		stack.Close()
		return nil, err
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if opts.Metrics != nil {
		hooks = append(hooks, opts.Metrics.Hooks())
	}

	engineOpts := []essay.Option{
		essay.WithStore(store),
		essay.WithLogger(logger),
		essay.WithLifecycleHooks(domain.CombineHooks(hooks...)),
		essay.WithStepTimeout(cfg.Run.StepTimeout),
		essay.WithRunDefaults(cfg.Run.Limits, cfg.Run.Models),
	}
	if locker != nil {
		engineOpts = append(engineOpts, essay.WithLocker(locker))
	}

	engine, err := essay.New(agentSet, engineOpts...)
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	stack.Engine = engine
	return stack, nil
}

// newStore opens the configured backend and wraps it with redaction and
// encryption. Redaction sits outside encryption so it sees plain runs.
func newStore(cfg *config.Config, stack *Stack) (ports.RunStore, ports.DistributedLocker, error) {
	var (
		store  ports.RunStore
		locker ports.DistributedLocker
	)
	switch cfg.Store.Kind {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(cfg.Store.Dir)
	case config.StoreRedis:
		rc := cfg.Store.Redis
		rs := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		stack.closers = append(stack.closers, rs.Close)
		store = rs
		locker = redis.NewLocker(rs.Client(), rc.LockPrefix)
	default:
		return nil, nil, &domain.ConfigurationError{Field: "store.kind", Reason: fmt.Sprintf("unknown store %q", cfg.Store.Kind)}
	}

	var mws []middleware.Middleware
	if cfg.Store.Redact {
		patterns := cfg.Store.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultRedactionPatterns
		}
		mw, err := middleware.NewRedactionMiddleware(patterns)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	if key := cfg.Secrets.EncryptionKey; key != "" {
		enc, err := encryptionConfig(key, cfg.Secrets.FallbackKeys)
		if err != nil {
			return nil, nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), locker, nil
}

func encryptionConfig(active string, fallbacks []string) (middleware.EncryptionConfig, error) {
	var enc middleware.EncryptionConfig
	key, err := middleware.ParseKey(active)
	if err != nil {
		return enc, err
	}
	enc.ActiveKey = key
	for _, f := range fallbacks {
		k, err := middleware.ParseKey(f)
		if err != nil {
			return enc, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, k)
	}
	return enc, nil
}

// newAgents wires the LLM providers that have keys and the search client.
func newAgents(cfg *config.Config, offline bool, logger *slog.Logger) (ports.AgentSet, error) {
	if offline {
		return stub.Agents(), nil
	}

	completers := map[llm.Provider]llm.Completer{}
	if key := cfg.Secrets.AnthropicKey; key != "" {
		completers[llm.ProviderAnthropic] = llm.NewAnthropic(func(o *llm.AnthropicOptions) {
			o.APIKey = key
			o.BaseURL = cfg.LLM.AnthropicBaseURL
			o.Temperature = cfg.LLM.Temperature
		})
	}
	if key := cfg.Secrets.OpenAIKey; key != "" {
		completers[llm.ProviderOpenAI] = llm.NewOpenAI(func(o *llm.OpenAIOptions) {
			o.APIKey = key
			o.BaseURL = cfg.LLM.OpenAIBaseURL
			o.Temperature = cfg.LLM.Temperature
		})
	}
	router := llm.NewRouter(completers)
	if err := router.Validate(cfg.Run.Models.WithDefaults()); err != nil {
		return nil, err
	}

	if cfg.Secrets.TavilyKey == "" {
		return nil, &domain.ConfigurationError{Field: config.EnvTavilyKey, Reason: "must be set (or use --offline)"}
	}
	searchOpts := []search.Option{
		search.WithDepth(cfg.Search.Depth),
		search.WithHTTPClient(&http.Client{Timeout: cfg.Search.Timeout}),
	}
	if cfg.Search.Endpoint != "" {
		searchOpts = append(searchOpts, search.WithEndpoint(cfg.Search.Endpoint))
	}

	return agents.New(agents.Config{
		Completer:   router,
		Searcher:    search.NewTavily(cfg.Secrets.TavilyKey, searchOpts...),
		MaxTokens:   cfg.LLM.MaxTokens,
		Concurrency: cfg.Search.Concurrency,
		Logger:      logger,
	})
}
