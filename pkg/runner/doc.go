/*
Package runner drives essay runs from a terminal.

It is the bridge between the engine and the person watching it. The runner
starts or resumes a run, reports every committed step through a pluggable
Handler and turns Ctrl+C into a clean stop between steps: the run stays
persisted and can be resumed later.

# Key Components

  - Runner: drives a run and wires signals to cancellation.
  - Handler: decouples how progress is presented (text, JSON Lines).
  - TextHandler: one line per step, then the (optionally rendered) essay.
  - JSONHandler: machine readable events for scripts.

# Usage

	r := runner.NewRunner(
		runner.WithHandler(runner.NewTextHandler(os.Stdout)),
	)

	run, err := r.Run(ctx, engine, essay.Request{Topic: topic})
	if errors.Is(err, runner.ErrInterrupted) {
		fmt.Println("resume with: essay resume", run.ID)
	}
*/
package runner
