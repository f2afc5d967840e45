package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

func newEngine(t *testing.T) *essay.Engine {
	t.Helper()
	eng, err := essay.New(stub.Agents(), essay.WithIDGenerator(func() string { return "run-1" }))
	require.NoError(t, err)
	return eng
}

func TestRunner_Run(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(WithHandler(NewTextHandler(&out)), WithoutSignals())

	run, err := r.Run(context.Background(), newEngine(t), essay.Request{Topic: "Urban beekeeping"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, run.Status)

	text := out.String()
	assert.Contains(t, text, `Run run-1: "Urban beekeeping"`)
	assert.Contains(t, text, "[ 1] Editor #1")
	assert.Contains(t, text, "[ 2] Writer #1")
	assert.Contains(t, text, "[ 4] Editor #2")
	assert.Contains(t, text, "decision: approve")
	assert.Contains(t, text, "approved")
	assert.Equal(t, 4, strings.Count(text, "\n[ "))
}

func TestRunner_Resume(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	_, err := eng.Start(ctx, essay.Request{ID: "r", Topic: "Tides"})
	require.NoError(t, err)
	_, err = eng.Step(ctx, "r")
	require.NoError(t, err)

	var out bytes.Buffer
	r := NewRunner(WithHandler(NewTextHandler(&out)), WithoutSignals())
	run, err := r.Resume(ctx, eng, "r")
	require.NoError(t, err)
	assert.Equal(t, 4, run.History.Len())

	text := out.String()
	assert.Contains(t, text, "Resuming run r after 1 steps (next: writer)")
	assert.NotContains(t, text, "[ 1]")
	assert.Contains(t, text, "[ 2] Writer #1")

	_, err = r.Resume(ctx, eng, "r")
	assert.ErrorIs(t, err, domain.ErrRunFinished)

	_, err = r.Resume(ctx, eng, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunner_StartError(t *testing.T) {
	r := NewRunner(WithHandler(NewTextHandler(&bytes.Buffer{})), WithoutSignals())
	_, err := r.Run(context.Background(), newEngine(t), essay.Request{Topic: "  "})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "topic", cfgErr.Field)
}

// blockingEngine commits one step then waits for cancellation.
type blockingEngine struct {
	run *domain.Run
}

func (e *blockingEngine) Start(ctx context.Context, req essay.Request) (*domain.Run, error) {
	return e.run, nil
}

func (e *blockingEngine) Inspect(ctx context.Context, runID string) (*domain.Run, error) {
	return e.run, nil
}

func (e *blockingEngine) Resume(ctx context.Context, runID string, observers ...session.Observer) (*domain.Run, error) {
	next := e.run.Clone()
	next.History = append(next.History, domain.RoleEditor)
	next.Ledger.Append(domain.LedgerEntry{Role: domain.RoleEditor, Visit: 1, Outcome: domain.OutcomeCompleted, Next: domain.RoleWriter})
	for _, observe := range observers {
		observe(next)
	}
	<-ctx.Done()
	return next, ctx.Err()
}

func newBlockingEngine(t *testing.T) *blockingEngine {
	state, err := domain.NewState("Tides", domain.Limits{}.WithDefaults(), domain.Models{})
	require.NoError(t, err)
	return &blockingEngine{run: &domain.Run{ID: "b", Status: domain.RunEditing, State: state, Next: domain.RoleEditor, Ledger: domain.NewLedger()}}
}

func TestRunner_Interrupt(t *testing.T) {
	interrupt := make(chan struct{})
	var out bytes.Buffer
	handler := &stepHook{Handler: NewTextHandler(&out), onStep: func() { close(interrupt) }}
	r := NewRunner(WithHandler(handler), WithInterruptSource(interrupt), WithoutSignals())

	run, err := r.Run(context.Background(), newBlockingEngine(t), essay.Request{Topic: "Tides"})
	assert.ErrorIs(t, err, ErrInterrupted)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.History.Len())
	assert.Contains(t, out.String(), "Interrupted after 1 steps. Resume with: essay resume b")
}

func TestRunner_InterruptSignal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("os.Process.Signal(os.Interrupt) is not supported on windows")
	}
	self, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)

	var out bytes.Buffer
	handler := &stepHook{Handler: NewTextHandler(&out), onStep: func() {
		require.NoError(t, self.Signal(os.Interrupt))
	}}
	r := NewRunner(WithHandler(handler))

	run, err := r.Run(context.Background(), newBlockingEngine(t), essay.Request{Topic: "Tides"})
	assert.ErrorIs(t, err, ErrInterrupted)
	require.NotNil(t, run)
	assert.Contains(t, out.String(), "Interrupted after 1 steps")
}

func TestRunner_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := &stepHook{Handler: NewTextHandler(&bytes.Buffer{}), onStep: cancel}
	r := NewRunner(WithHandler(handler), WithoutSignals())

	_, err := r.Run(ctx, newBlockingEngine(t), essay.Request{Topic: "Tides"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrInterrupted))
}

type stepHook struct {
	Handler
	onStep func()
}

func (h *stepHook) Step(ctx context.Context, entry domain.LedgerEntry) error {
	if err := h.Handler.Step(ctx, entry); err != nil {
		return err
	}
	h.onStep()
	return nil
}
