package essay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/file"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

func fixedID(id string) essay.Option {
	return essay.WithIDGenerator(func() string { return id })
}

func TestEngine_Write(t *testing.T) {
	eng, err := essay.New(stub.Agents(), fixedID("run-1"))
	require.NoError(t, err)

	var seen []int
	run, err := eng.Write(context.Background(), essay.Request{Topic: "Urban beekeeping"}, func(r *domain.Run) {
		seen = append(seen, r.History.Len())
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, domain.RunTerminated, run.Status)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)

	art, err := eng.Artifact(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, art.Complete)
	assert.Equal(t, domain.CompletionApproved, art.Completion)
	assert.NotEmpty(t, art.Essay)

	ids, err := eng.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestEngine_Start(t *testing.T) {
	tests := []struct {
		name      string
		req       essay.Request
		wantField string
	}{
		{name: "defaults", req: essay.Request{Topic: "Tides"}},
		{name: "empty topic", req: essay.Request{Topic: "  "}, wantField: "topic"},
		{
			name:      "essay too short",
			req:       essay.Request{Topic: "Tides", Limits: domain.Limits{MaxEssayLength: 50}},
			wantField: "max_essay_length",
		},
		{
			name:      "negative limit",
			req:       essay.Request{Topic: "Tides", Limits: domain.Limits{MaxQueries: -1}},
			wantField: "max_queries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := essay.New(stub.Agents())
			require.NoError(t, err)

			run, err := eng.Start(context.Background(), tt.req)
			if tt.wantField != "" {
				var cfgErr *domain.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				ids, _ := eng.List(context.Background())
				assert.Empty(t, ids, "no run is stored for a rejected request")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, domain.RoleEditor, run.Next)
			assert.Equal(t, domain.DefaultLimits(), run.State.Limits)
			assert.Equal(t, domain.DefaultModels(), run.State.Models)
		})
	}
}

func TestEngine_StartExistingID(t *testing.T) {
	eng, err := essay.New(stub.Agents())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := eng.Start(ctx, essay.Request{ID: "same", Topic: "Tides"})
	require.NoError(t, err)
	_, err = eng.Step(ctx, "same")
	require.NoError(t, err)

	again, err := eng.Start(ctx, essay.Request{ID: "same", Topic: "Something else"})
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(again.CreatedAt))
	assert.Equal(t, "Tides", again.State.Topic)
	assert.Equal(t, 1, again.History.Len())
}

func TestEngine_Step(t *testing.T) {
	eng, err := essay.New(stub.Agents(), fixedID("r"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.Start(ctx, essay.Request{Topic: "Tides"})
	require.NoError(t, err)

	run, err := eng.Step(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleEditor}, []domain.Role(run.History))

	stored, err := eng.Inspect(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Ledger.Len())
	assert.Equal(t, domain.RoleWriter, stored.Next)

	_, err = eng.Resume(ctx, "r")
	require.NoError(t, err)

	_, err = eng.Step(ctx, "r")
	assert.True(t, errors.Is(err, domain.ErrRunFinished))

	_, err = eng.Step(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestEngine_ResumeAcrossEngines(t *testing.T) {
	dir := t.TempDir()
	agents := stub.With(stub.Editor{ReadyAfter: 2})
	req := essay.Request{ID: "durable", Topic: "Urban beekeeping"}

	first, err := essay.New(agents, essay.WithStore(file.New(dir)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run, err := first.Write(ctx, req, func(r *domain.Run) {
		if r.History.Len() == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, run.History.Len())

	// A fresh engine over the same directory picks the run up where it stopped.
	second, err := essay.New(agents, essay.WithStore(file.New(dir)))
	require.NoError(t, err)
	run, err = second.Resume(context.Background(), "durable")
	require.NoError(t, err)

	assert.Equal(t, domain.RunTerminated, run.Status)
	assert.Equal(t, []domain.Role{
		domain.RoleEditor, domain.RoleResearcher, domain.RoleEditor,
		domain.RoleWriter, domain.RoleCritic, domain.RoleEditor,
	}, []domain.Role(run.History))
	for i, e := range run.Ledger.Entries() {
		assert.Equal(t, i, e.Index)
	}

	require.NoError(t, second.Delete(context.Background(), "durable"))
	_, err = second.Inspect(context.Background(), "durable")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestEngine_RunDefaults(t *testing.T) {
	eng, err := essay.New(stub.Agents(), essay.WithRunDefaults(
		domain.Limits{MaxCritiqueCycles: 1, MaxEssayLength: 600},
		domain.Models{Critic: "claude-haiku-4-5"},
	))
	require.NoError(t, err)

	run, err := eng.Start(context.Background(), essay.Request{
		Topic:  "Tides",
		Limits: domain.Limits{MaxEssayLength: 900},
	})
	require.NoError(t, err)

	limits := run.State.Limits
	assert.Equal(t, 900, limits.MaxEssayLength)
	assert.Equal(t, 1, limits.MaxCritiqueCycles)
	assert.Equal(t, domain.DefaultMaxQueries, limits.MaxQueries)
	assert.Equal(t, "claude-haiku-4-5", run.State.Models.Critic)
	assert.Equal(t, domain.DefaultEditorModel, run.State.Models.Editor)
}

func TestEngine_ReadDuringStep(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	agents := stub.Agents()
	agents[domain.RoleWriter] = ports.AgentFunc(func(ctx context.Context, req domain.AgentRequest) (domain.Update, error) {
		close(entered)
		<-release
		return stub.Writer{}.Execute(ctx, req)
	})

	eng, err := essay.New(agents)
	require.NoError(t, err)
	_, err = eng.Start(context.Background(), essay.Request{ID: "busy", Topic: "Salt marshes"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Resume(context.Background(), "busy")
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	run, err := eng.Inspect(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 1, run.History.Len())
	assert.Equal(t, domain.RoleWriter, run.Next)
	assert.Equal(t, 1, run.Ledger.Len())

	art, err := eng.Artifact(ctx, "busy")
	require.NoError(t, err)
	assert.False(t, art.Complete)

	ids, err := eng.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"busy"}, ids)

	close(release)
	require.NoError(t, <-done)

	run, err = eng.Inspect(context.Background(), "busy")
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, run.Status)
}
