package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures how progress is presented.
func WithHandler(handler Handler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithInterruptSource sets a channel that stops the run between steps.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.InterruptSource = ch
	}
}

// WithoutSignals disables OS signal handling, e.g. when the caller
// manages signals itself.
func WithoutSignals() Option {
	return func(r *Runner) {
		r.IgnoreSignals = true
	}
}
