package session

import (
	"context"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Stepper advances a run by exactly one step. It returns the same run
// pointer when nothing was committed (cancelled or finished run).
type Stepper interface {
	Step(ctx context.Context, run *domain.Run) (*domain.Run, error)
}

// Observer is told about every run Drive persists.
type Observer func(run *domain.Run)

// Drive loads runID and steps it until it terminates, fails or ctx is
// cancelled. Each step runs under the run lock and is saved before the lock
// is released; a cancelled ctx never discards a committed step.
func (m *Manager) Drive(ctx context.Context, runID string, stepper Stepper, observers ...Observer) (*domain.Run, error) {
	var run *domain.Run
	for {
		if err := ctx.Err(); err != nil {
			if run == nil {
				return nil, err
			}
			m.logger.Info("run interrupted", "run_id", runID, "steps", run.History.Len())
			return run, err
		}

		var stepErr error
		err := m.WithLock(ctx, runID, func(ctx context.Context) error {
			current, err := m.store.Load(ctx, runID)
			if err != nil {
				return err
			}
			if current.Status.Finished() {
				run = current
				return nil
			}

			next, err := stepper.Step(ctx, current)
			run = next
			stepErr = err
			if next == current {
				return nil
			}
			return m.store.Save(context.WithoutCancel(ctx), next)
		})
		if err != nil {
			return run, err
		}
		for _, observe := range observers {
			observe(run)
		}
		if stepErr != nil {
			return run, stepErr
		}
		if run.Status.Finished() {
			return run, nil
		}
	}
}
