package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/internal/config"
	"github.com/markgewhite/agentic-essay-writer/internal/presentation/tui"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/runner"
)

// RunOptions contains all the configuration for the run and resume commands.
type RunOptions struct {
	ConfigPath string
	Topic      string
	RunID      string
	Limits     domain.Limits
	Models     domain.Models
	JSON       bool
	Quiet      bool
	Plain      bool
	Offline    bool
	Debug      bool

	// Output defaults to Stdout.
	Output io.Writer
}

// LoadConfig reads the configuration file and applies the debug switch.
func LoadConfig(path string, debug bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// Execute writes an essay on opts.Topic, or continues opts.RunID when it
// names an unfinished run.
func Execute(ctx context.Context, opts RunOptions) error {
	return drive(ctx, opts, func(ctx context.Context, r *runner.Runner, eng *essay.Engine) (*domain.Run, error) {
		return r.Run(ctx, eng, essay.Request{
			ID:     opts.RunID,
			Topic:  opts.Topic,
			Limits: opts.Limits,
			Models: opts.Models,
		})
	})
}

// Resume continues a stored run.
func Resume(ctx context.Context, opts RunOptions) error {
	return drive(ctx, opts, func(ctx context.Context, r *runner.Runner, eng *essay.Engine) (*domain.Run, error) {
		return r.Resume(ctx, eng, opts.RunID)
	})
}

type driveFunc func(ctx context.Context, r *runner.Runner, eng *essay.Engine) (*domain.Run, error)

func drive(ctx context.Context, opts RunOptions, fn driveFunc) error {
	cfg, err := LoadConfig(opts.ConfigPath, opts.Debug)
	if err != nil {
		return err
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	stack, err := NewStack(cfg, EngineOptions{Offline: opts.Offline})
	if err != nil {
		return err
	}
	defer stack.Close()

	rich := !opts.JSON && !opts.Plain && out == os.Stdout && tui.IsTerminal(os.Stdout)
	if rich && !opts.Quiet {
		tui.PrintBanner(out, essay.Version)
	}

	r := runner.NewRunner(
		runner.WithHandler(newHandler(opts, out, rich)),
		runner.WithLogger(createLogger(cfg)),
	)

	run, err := fn(ctx, r, stack.Engine)
	if err != nil {
		return handleExecutionError(err)
	}
	if run.Status == domain.RunFailed {
		return fmt.Errorf("run %s failed", run.ID)
	}
	return nil
}

func newHandler(opts RunOptions, out io.Writer, rich bool) runner.Handler {
	if opts.JSON {
		return runner.NewJSONHandler(out)
	}
	textOpts := []runner.TextHandlerOption{runner.WithQuiet(opts.Quiet)}
	if rich {
		textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer(tui.Width(os.Stdout, 100))))
	}
	return runner.NewTextHandler(out, textOpts...)
}
