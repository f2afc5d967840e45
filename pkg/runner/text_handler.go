package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// TextHandler prints one line per step and the essay at the end.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer

	// Quiet suppresses everything but the essay.
	Quiet bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet only prints the final essay.
func WithQuiet(quiet bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = quiet
	}
}

// NewTextHandler creates a handler for standard text output.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Started(ctx context.Context, run *domain.Run) error {
	if h.Quiet {
		return nil
	}
	if steps := run.History.Len(); steps > 0 {
		_, err := fmt.Fprintf(h.Writer, "Resuming run %s after %d steps (next: %s)\n", run.ID, steps, run.Next)
		return err
	}
	topic := ""
	if run.State != nil {
		topic = run.State.Topic
	}
	_, err := fmt.Fprintf(h.Writer, "Run %s: %q\n", run.ID, topic)
	return err
}

func (h *TextHandler) Step(ctx context.Context, entry domain.LedgerEntry) error {
	if h.Quiet {
		return nil
	}
	next := "end"
	if entry.Next != "" {
		next = string(entry.Next)
	}
	_, err := fmt.Fprintf(h.Writer, "[%2d] %-14s %-34s -> %-10s (%s)\n",
		entry.Index+1, entry.Label(), Describe(entry), next, entry.Duration.Round(100*time.Millisecond))
	return err
}

func (h *TextHandler) Finished(ctx context.Context, run *domain.Run, runErr error) error {
	if run == nil {
		return nil
	}
	art := domain.ArtifactOf(run)

	switch {
	case errors.Is(runErr, ErrInterrupted):
		fmt.Fprintf(h.Writer, "\nInterrupted after %d steps. Resume with: essay resume %s\n", art.Steps, run.ID)
		return nil
	case run.Status == domain.RunFailed:
		msg := ""
		if run.Error != nil {
			msg = run.Error.Message
		}
		fmt.Fprintf(h.Writer, "\nRun %s failed after %d steps: %s\n", run.ID, art.Steps, msg)
		if art.Essay == "" {
			return nil
		}
		fmt.Fprintln(h.Writer, "Last draft (incomplete):")
	case art.Essay == "":
		return nil
	}

	output := art.Essay
	if h.Renderer != nil {
		if rendered, err := h.Renderer(art.Essay); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer)
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	if !h.Quiet && art.Complete {
		fmt.Fprintf(h.Writer, "\n%d words, %d steps, %s\n", art.WordCount, art.Steps, art.Completion)
	}
	return nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}
