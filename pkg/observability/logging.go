package observability

import (
	"context"
	"log/slog"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// LogHooks logs every step at debug level and failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step start", "run_id", e.RunID, "index", e.Index, "role", e.Role, "model", e.Model)
		},
		OnStepComplete: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step complete",
				"run_id", e.RunID,
				"index", e.Index,
				"role", e.Role,
				"edge", e.Edge,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
		OnStepFailed: func(ctx context.Context, e *domain.StepEvent) {
			logger.WarnContext(ctx, "step failed", "run_id", e.RunID, "index", e.Index, "role", e.Role, "err", e.Error)
		},
		OnRunFinished: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run finished",
				"run_id", e.RunID,
				"status", e.Status,
				"completion", e.Completion,
				"steps", e.Steps,
			)
		},
	}
}
