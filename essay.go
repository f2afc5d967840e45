package essay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/internal/runtime"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/memory"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

// Version is the release of the module, overridden at build time with
// -ldflags "-X github.com/markgewhite/agentic-essay-writer.Version=...".
var Version = "dev"

// lockMargin is added to the step timeout to size distributed lock leases.
const lockMargin = 30 * time.Second

// Engine is the high-level entry point of the library.
// It binds the orchestration runtime to a run store so that runs survive
// restarts and can be resumed, inspected and listed by ID.
type Engine struct {
	runtime *runtime.Engine
	manager *session.Manager

	store       ports.RunStore
	locker      ports.DistributedLocker
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	stepTimeout time.Duration
	clock       func() time.Time
	newID       func() string

	limits domain.Limits
	models domain.Models
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore persists runs in store instead of process memory.
func WithStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes steps of the same run across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStepTimeout bounds every agent invocation.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithRunDefaults sets the limits and models of requests that leave them
// unset. Anything still unset takes the built-in defaults.
func WithRunDefaults(limits domain.Limits, models domain.Models) Option {
	return func(e *Engine) {
		e.limits = limits
		e.models = models
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithIDGenerator overrides how run IDs are minted (default: UUIDv4).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New initializes an Engine driving the given agents.
func New(agents ports.AgentSet, opts ...Option) (*Engine, error) {
	e := &Engine{
		stepTimeout: runtime.DefaultStepTimeout,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	rtOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithStepTimeout(e.stepTimeout),
	}
	if e.clock != nil {
		rtOpts = append(rtOpts, runtime.WithClock(e.clock))
	}
	rt, err := runtime.NewEngine(agents, rtOpts...)
	if err != nil {
		return nil, err
	}
	e.runtime = rt

	mgrOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithLockTTL(e.stepTimeout + lockMargin),
	}
	if e.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(e.locker))
	}
	e.manager = session.NewManager(e.store, mgrOpts...)
	return e, nil
}

// Request describes a new run. Zero limits and empty models take the
// engine's run defaults.
type Request struct {
	ID     string        `json:"id,omitempty" mapstructure:"id"`
	Topic  string        `json:"topic" mapstructure:"topic"`
	Limits domain.Limits `json:"limits" mapstructure:"limits"`
	Models domain.Models `json:"models" mapstructure:"models"`
}

// Start validates req and persists a new run positioned at its first step.
// Starting an ID that already exists returns the stored run untouched.
func (e *Engine) Start(ctx context.Context, req Request) (*domain.Run, error) {
	limits := req.Limits.Or(e.limits).WithDefaults()
	state, err := domain.NewState(req.Topic, limits, req.Models.Or(e.models))
	if err != nil {
		return nil, err
	}
	id := req.ID
	if id == "" {
		id = e.newID()
	}
	run, err := e.manager.LoadOrStart(ctx, id, func() (*domain.Run, error) {
		return e.runtime.Start(id, state)
	})
	if err != nil {
		return nil, fmt.Errorf("start run %s: %w", id, err)
	}
	e.logger.InfoContext(ctx, "run started", "run_id", run.ID, "topic", state.Topic, "bound", state.Limits.StepBound())
	return run, nil
}

// Resume steps a stored run until it terminates, fails or ctx is cancelled.
// Every committed step is persisted before observers are notified, so a
// cancelled run resumes exactly where it stopped.
func (e *Engine) Resume(ctx context.Context, runID string, observers ...session.Observer) (*domain.Run, error) {
	return e.manager.Drive(ctx, runID, e.runtime, observers...)
}

// Write starts a run for req and drives it to the end.
func (e *Engine) Write(ctx context.Context, req Request, observers ...session.Observer) (*domain.Run, error) {
	run, err := e.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.Resume(ctx, run.ID, observers...)
}

// Step advances a stored run by exactly one agent invocation.
func (e *Engine) Step(ctx context.Context, runID string) (*domain.Run, error) {
	store := e.manager.Store()
	var out *domain.Run
	err := e.manager.WithLock(ctx, runID, func(ctx context.Context) error {
		run, err := store.Load(ctx, runID)
		if err != nil {
			return err
		}
		next, stepErr := e.runtime.Step(ctx, run)
		out = next
		if next != nil && next != run {
			if err := store.Save(context.WithoutCancel(ctx), next); err != nil {
				return err
			}
		}
		return stepErr
	})
	return out, err
}

// Inspect loads a run with its ledger. It does not wait for an in-flight
// step: the run is returned as of its last committed step.
func (e *Engine) Inspect(ctx context.Context, runID string) (*domain.Run, error) {
	return e.manager.Load(ctx, runID)
}

// Artifact returns the essay of a run. Incomplete runs are reported with
// Complete set to false.
func (e *Engine) Artifact(ctx context.Context, runID string) (domain.Artifact, error) {
	run, err := e.manager.Load(ctx, runID)
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.ArtifactOf(run), nil
}

// List returns the IDs of all stored runs.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Delete removes a stored run.
func (e *Engine) Delete(ctx context.Context, runID string) error {
	return e.manager.Delete(ctx, runID)
}

// Manager exposes the run manager for adapters that need locking.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}
