package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// DefaultStepTimeout bounds a single agent invocation.
const DefaultStepTimeout = 5 * time.Minute

// Engine is the deterministic orchestrator of a run.
// It owns every control field of the State; agents only contribute content.
type Engine struct {
	agents      ports.AgentSet
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	stepTimeout time.Duration
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStepTimeout sets the per-step deadline. Zero disables it.
func WithStepTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithClock overrides time.Now, for deterministic ledgers in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine bound to one agent per role.
func NewEngine(agents ports.AgentSet, opts ...EngineOption) (*Engine, error) {
	if err := agents.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		agents:      agents,
		stepTimeout: DefaultStepTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	return e, nil
}

// Start creates a run positioned before its first step.
func (e *Engine) Start(id string, state *domain.State) (*domain.Run, error) {
	if state == nil {
		return nil, &domain.ConfigurationError{Field: "state", Reason: "must not be nil"}
	}
	if err := state.CheckInvariants(); err != nil {
		return nil, err
	}
	route, err := Decide(state, nil)
	if err != nil {
		return nil, err
	}
	now := e.now()
	return &domain.Run{
		ID:        id,
		Status:    domain.StatusFor(state),
		State:     state.Clone(),
		History:   domain.History{},
		Next:      route.Next,
		Ledger:    domain.NewLedger(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Step invokes the agent for run.Next once and returns the resulting run.
//
// The input run is not modified, except that its ledger (shared by both
// values) gains one entry. A cancelled context is only honoured before the
// agent is called; an invocation in flight always completes or times out.
func (e *Engine) Step(ctx context.Context, run *domain.Run) (*domain.Run, error) {
	if run.Status.Finished() {
		return run, domain.ErrRunFinished
	}
	if err := ctx.Err(); err != nil {
		return run, err
	}
	if run.Ledger == nil {
		run.Ledger = domain.NewLedger()
	}
	if bound := run.State.Limits.StepBound(); run.History.Len() >= bound {
		return e.fail(ctx, run, nil, &domain.RoutingDefectError{
			Last:     run.History.Last(2),
			Phase:    run.State.Phase(),
			Decision: run.State.EditorDecision,
			Reason:   fmt.Sprintf("step bound %d reached without termination", bound),
		})
	}

	role := run.Next
	snapshot := run.State.Clone()
	entry := domain.LedgerEntry{
		Role:     role,
		Visit:    run.History.Count(role) + 1,
		Model:    snapshot.Models.For(role),
		Input:    snapshot,
		Counters: domain.CountersOf(snapshot),
	}

	agent, ok := e.agents[role]
	if !ok || ceilingReached(snapshot, role) {
		entry.StartedAt = e.now()
		entry.FinishedAt = entry.StartedAt
		return e.fail(ctx, run, &entry, &domain.RoutingDefectError{
			Last:     run.History.Last(2),
			Phase:    snapshot.Phase(),
			Decision: snapshot.EditorDecision,
			Reason:   fmt.Sprintf("cannot invoke %q at counters %+v", role, entry.Counters),
		})
	}

	req := domain.AgentRequest{
		RunID: run.ID,
		Step:  run.History.Len(),
		Role:  role,
		Model: entry.Model,
		State: snapshot.Clone(),

		FreshResearch: freshResearch(run.Ledger, role, snapshot),
	}
	e.emitStep(ctx, e.hooks.OnStepStart, domain.EventStepStart, run.ID, &domain.StepEvent{
		Index:    run.Ledger.Len(),
		Role:     role,
		Model:    entry.Model,
		Counters: entry.Counters,
	})

	entry.StartedAt = e.now()
	upd, err := e.invoke(ctx, agent, req)
	entry.FinishedAt = e.now()
	entry.Duration = entry.FinishedAt.Sub(entry.StartedAt)
	if err != nil {
		return e.fail(ctx, run, &entry, classify(role, err))
	}

	next, err := merge(snapshot, role, upd)
	if err != nil {
		return e.fail(ctx, run, &entry, &domain.AgentInvocationError{Role: role, Kind: domain.KindMalformedResponse, Err: err})
	}

	history := run.History.Append(role)
	route, routeErr := Decide(next, history)
	if routeErr == nil && route.ForceDecision != domain.DecisionNone {
		next.EditorDecision = route.ForceDecision
	}

	entry.Outcome = domain.OutcomeCompleted
	entry.Output = next
	entry.Changes = domain.Diff(snapshot, next)
	entry.Counters = domain.CountersOf(next)
	entry.Edge = route.Edge
	entry.Next = route.Next
	index := run.Ledger.Append(entry)

	out := *run
	out.State = next
	out.History = history
	out.UpdatedAt = entry.FinishedAt

	if routeErr != nil {
		out.Status = domain.RunFailed
		out.Next = ""
		out.Error = domain.NewRunError(routeErr)
		e.logger.Error("routing defect", "run_id", run.ID, "role", role, "err", routeErr)
		e.finish(ctx, &out)
		return &out, routeErr
	}

	if route.Terminate {
		out.Status = domain.RunTerminated
		out.Next = ""
	} else {
		out.Status = domain.StatusFor(next)
		out.Next = route.Next
	}

	e.logger.Debug("step completed",
		"run_id", run.ID,
		"index", index,
		"role", role,
		"edge", route.Edge,
		"next", route.Next,
		"duration", entry.Duration)
	e.emitStep(ctx, e.hooks.OnStepComplete, domain.EventStepComplete, run.ID, &domain.StepEvent{
		Index:    index,
		Role:     role,
		Model:    entry.Model,
		Outcome:  entry.Outcome,
		Edge:     entry.Edge,
		Next:     entry.Next,
		Counters: entry.Counters,
		Duration: entry.Duration,
		Changes:  entry.Changes,
	})
	if out.Status == domain.RunTerminated {
		e.finish(ctx, &out)
	}
	return &out, nil
}

// Run steps until the run terminates, fails or ctx is cancelled.
// Cancellation is checked between steps; the returned run can be resumed by
// calling Run again.
func (e *Engine) Run(ctx context.Context, run *domain.Run) (*domain.Run, error) {
	for !run.Status.Finished() {
		if err := ctx.Err(); err != nil {
			e.logger.Info("run interrupted", "run_id", run.ID, "steps", run.History.Len())
			return run, err
		}
		next, err := e.Step(ctx, run)
		run = next
		if err != nil {
			return run, err
		}
	}
	return run, nil
}

// invoke calls the agent with a deadline detached from ctx cancellation.
func (e *Engine) invoke(ctx context.Context, agent ports.Agent, req domain.AgentRequest) (domain.Update, error) {
	stepCtx := context.WithoutCancel(ctx)
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, e.stepTimeout)
		defer cancel()
	}

	type result struct {
		upd domain.Update
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		upd, err := agent.Execute(stepCtx, req)
		done <- result{upd: upd, err: err}
	}()

	select {
	case r := <-done:
		return r.upd, r.err
	case <-stepCtx.Done():
		return domain.Update{}, stepCtx.Err()
	}
}

// fail records a failed step (when entry is non-nil) and moves the run to
// failed, keeping the last committed State.
func (e *Engine) fail(ctx context.Context, run *domain.Run, entry *domain.LedgerEntry, err error) (*domain.Run, error) {
	out := *run
	out.Status = domain.RunFailed
	out.Next = ""
	out.Error = domain.NewRunError(err)
	out.UpdatedAt = e.now()

	if entry != nil {
		entry.Outcome = domain.OutcomeFailed
		entry.Error = err.Error()
		index := run.Ledger.Append(*entry)
		e.emitStep(ctx, e.hooks.OnStepFailed, domain.EventStepFailed, run.ID, &domain.StepEvent{
			Index:    index,
			Role:     entry.Role,
			Model:    entry.Model,
			Outcome:  entry.Outcome,
			Counters: entry.Counters,
			Duration: entry.Duration,
			Error:    entry.Error,
		})
	}

	e.logger.Error("run failed", "run_id", run.ID, "role", run.Next, "err", err)
	e.finish(ctx, &out)
	return &out, err
}

func (e *Engine) finish(ctx context.Context, run *domain.Run) {
	if run.Status == domain.RunTerminated {
		e.logger.Info("run terminated",
			"run_id", run.ID,
			"steps", run.History.Len(),
			"completion", run.State.Completion)
	}
	if e.hooks.OnRunFinished == nil {
		return
	}
	e.hooks.OnRunFinished(ctx, &domain.RunEvent{
		EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventRunFinished, RunID: run.ID},
		Status:     run.Status,
		Completion: run.State.Completion,
		Steps:      run.History.Len(),
		Error:      run.Error,
	})
}

func (e *Engine) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), typ domain.EventType, runID string, ev *domain.StepEvent) {
	if hook == nil {
		return
	}
	ev.EventBase = domain.EventBase{Timestamp: e.now(), Type: typ, RunID: runID}
	hook(ctx, ev)
}

// classify maps an agent error onto the invocation taxonomy.
func classify(role domain.Role, err error) *domain.AgentInvocationError {
	var inv *domain.AgentInvocationError
	if errors.As(err, &inv) {
		c := *inv
		if c.Role == "" {
			c.Role = role
		}
		return &c
	}
	kind := domain.KindProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.KindTimeout
	case errors.Is(err, domain.ErrMalformedResponse):
		kind = domain.KindMalformedResponse
	}
	return &domain.AgentInvocationError{Role: role, Kind: kind, Err: err}
}

// freshResearch counts the results appended since role last completed a step.
func freshResearch(ledger *domain.Ledger, role domain.Role, s *domain.State) int {
	entries := ledger.ByRole(role)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Outcome == domain.OutcomeCompleted && entries[i].Output != nil {
			return len(s.ResearchResults) - len(entries[i].Output.ResearchResults)
		}
	}
	return len(s.ResearchResults)
}
