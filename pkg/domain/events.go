package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart    EventType = "step_start"
	EventStepComplete EventType = "step_complete"
	EventStepFailed   EventType = "step_failed"
	EventRunFinished  EventType = "run_finished"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StepEvent describes the start or end of one agent invocation.
type StepEvent struct {
	EventBase
	Index    int           `json:"index"`
	Role     Role          `json:"role"`
	Model    string        `json:"model,omitempty"`
	Outcome  Outcome       `json:"outcome,omitempty"`
	Edge     Edge          `json:"edge,omitempty"`
	Next     Role          `json:"next,omitempty"`
	Counters Counters      `json:"counters"`
	Duration time.Duration `json:"duration,omitempty"`
	Changes  *StateDiff    `json:"changes,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunEvent is emitted once when a run terminates or fails.
type RunEvent struct {
	EventBase
	Status     RunStatus        `json:"status"`
	Completion CompletionReason `json:"completion,omitempty"`
	Steps      int              `json:"steps"`
	Error      *RunError        `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepStart    func(context.Context, *StepEvent)
	OnStepComplete func(context.Context, *StepEvent)
	OnStepFailed   func(context.Context, *StepEvent)
	OnRunFinished  func(context.Context, *RunEvent)
}

// CombineHooks fans every callback out to all hooks, in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnStepStart = chain(out.OnStepStart, h.OnStepStart)
		out.OnStepComplete = chain(out.OnStepComplete, h.OnStepComplete)
		out.OnStepFailed = chain(out.OnStepFailed, h.OnStepFailed)
		out.OnRunFinished = chain(out.OnRunFinished, h.OnRunFinished)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
