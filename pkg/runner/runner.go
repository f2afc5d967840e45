package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

// ErrInterrupted is returned when a run was stopped by a signal or an
// interrupt source. The run is persisted and can be resumed.
var ErrInterrupted = errors.New("run interrupted")

// Engine is the subset of essay.Engine the runner drives.
type Engine interface {
	Start(ctx context.Context, req essay.Request) (*domain.Run, error)
	Resume(ctx context.Context, runID string, observers ...session.Observer) (*domain.Run, error)
	Inspect(ctx context.Context, runID string) (*domain.Run, error)
}

// Runner drives a run to the end and reports its progress through a Handler.
type Runner struct {
	// Handler presents progress. If nil, a TextHandler on Stdout is used.
	Handler Handler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// InterruptSource stops the run between steps when it is closed or
	// receives a value.
	InterruptSource <-chan struct{}

	// IgnoreSignals disables the SIGINT/SIGTERM listener.
	IgnoreSignals bool
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdout)
	}
	return r
}

// Run starts a run for req and drives it until it finishes or is interrupted.
// Starting the ID of an unfinished run continues it.
func (r *Runner) Run(ctx context.Context, engine Engine, req essay.Request) (*domain.Run, error) {
	run, err := engine.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.drive(ctx, engine, run)
}

// Resume drives a stored run until it finishes or is interrupted.
func (r *Runner) Resume(ctx context.Context, engine Engine, runID string) (*domain.Run, error) {
	run, err := engine.Inspect(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status.Finished() {
		return run, fmt.Errorf("run %s: %w", runID, domain.ErrRunFinished)
	}
	return r.drive(ctx, engine, run)
}

func (r *Runner) drive(parent context.Context, engine Engine, run *domain.Run) (*domain.Run, error) {
	ctx, interrupted, stop := r.interruptible(parent)
	defer stop()

	if err := r.Handler.Started(ctx, run); err != nil {
		return run, fmt.Errorf("output error: %w", err)
	}

	next := 0
	if run.Ledger != nil {
		next = run.Ledger.Len()
	}
	var outErr error
	observe := func(current *domain.Run) {
		if current.Ledger == nil || outErr != nil {
			return
		}
		for _, entry := range current.Ledger.Since(next) {
			if err := r.Handler.Step(ctx, entry); err != nil {
				outErr = err
				return
			}
			next = entry.Index + 1
		}
	}

	final, err := engine.Resume(ctx, run.ID, observe)
	if final == nil {
		final = run
	}
	if err != nil && interrupted() && errors.Is(err, context.Canceled) {
		r.Logger.Debug("run interrupted", "run_id", run.ID, "steps", final.History.Len())
		err = ErrInterrupted
	}

	if hErr := r.Handler.Finished(context.WithoutCancel(ctx), final, err); hErr != nil && outErr == nil {
		outErr = hErr
	}
	if err != nil {
		return final, err
	}
	if outErr != nil {
		return final, fmt.Errorf("output error: %w", outErr)
	}
	return final, nil
}

// interruptible derives a context cancelled by OS signals or the interrupt
// source. interrupted reports whether one of them fired.
func (r *Runner) interruptible(parent context.Context) (ctx context.Context, interrupted func() bool, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	var sigDone <-chan struct{}
	stopSignals := func() {}
	if !r.IgnoreSignals {
		var sigCtx context.Context
		sigCtx, stopSignals = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		sigDone = sigCtx.Done()
	}

	fired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-sigDone:
		case <-r.InterruptSource:
		case <-done:
			return
		}
		close(fired)
		cancel()
	}()

	interrupted = func() bool {
		select {
		case <-fired:
			return true
		default:
			return false
		}
	}
	stop = func() {
		close(done)
		cancel()
		stopSignals()
	}
	return ctx, interrupted, stop
}
