package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

func strPtr(s string) *string { return &s }

func finishedRun(t *testing.T, status domain.RunStatus) *domain.Run {
	t.Helper()
	state, err := domain.NewState("Tides", domain.Limits{}.WithDefaults(), domain.Models{})
	require.NoError(t, err)
	state.Draft = strPtr("The moon pulls the sea.")
	run := &domain.Run{ID: "t1", Status: status, State: state, History: domain.History{domain.RoleEditor, domain.RoleWriter}}
	if status == domain.RunTerminated {
		state.EssayComplete = true
		state.Completion = domain.CompletionApproved
	}
	if status == domain.RunFailed {
		run.Error = &domain.RunError{Type: domain.ErrorTypeAgentInvocation, Message: "critic: timeout"}
	}
	return run
}

func TestTextHandler_Step(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(&out)

	err := h.Step(context.Background(), domain.LedgerEntry{
		Index:    1,
		Role:     domain.RoleWriter,
		Visit:    1,
		Outcome:  domain.OutcomeCompleted,
		Next:     domain.RoleCritic,
		Output:   &domain.State{Draft: strPtr("one two three")},
		Duration: 1234 * time.Millisecond,
	})
	require.NoError(t, err)

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "[ 2] Writer #1"), line)
	assert.Contains(t, line, "draft 3 words")
	assert.Contains(t, line, "-> critic")
	assert.Contains(t, line, "(1.2s)")
}

func TestTextHandler_Finished(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.RunStatus
		err      error
		contains []string
		excludes []string
	}{
		{
			name:     "Terminated",
			status:   domain.RunTerminated,
			contains: []string{"Rendered: The moon pulls the sea.", "5 words, 2 steps, approved"},
		},
		{
			name:     "Failed",
			status:   domain.RunFailed,
			err:      assert.AnError,
			contains: []string{"Run t1 failed after 2 steps: critic: timeout", "Last draft (incomplete):", "Rendered: The moon"},
			excludes: []string{"approved"},
		},
		{
			name:     "Interrupted",
			status:   domain.RunWriting,
			err:      ErrInterrupted,
			contains: []string{"Interrupted after 2 steps. Resume with: essay resume t1"},
			excludes: []string{"The moon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := NewTextHandler(&out, WithTextHandlerRenderer(func(s string) (string, error) {
				return "Rendered: " + s, nil
			}))
			require.NoError(t, h.Finished(context.Background(), finishedRun(t, tt.status), tt.err))
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out.String(), unwanted)
			}
		})
	}
}

func TestTextHandler_Quiet(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(&out, WithQuiet(true))
	ctx := context.Background()
	run := finishedRun(t, domain.RunTerminated)

	require.NoError(t, h.Started(ctx, run))
	require.NoError(t, h.Step(ctx, domain.LedgerEntry{Role: domain.RoleEditor, Visit: 1}))
	require.NoError(t, h.Finished(ctx, run, nil))

	assert.Equal(t, "\nThe moon pulls the sea.\n", out.String())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.LedgerEntry
		want  string
	}{
		{"Failed", domain.LedgerEntry{Role: domain.RoleCritic, Outcome: domain.OutcomeFailed, Error: "boom"}, "failed: boom"},
		{"Plan", domain.LedgerEntry{Role: domain.RoleEditor, Output: &domain.State{ResearchQueries: []string{"a", "b"}}}, "2 queries"},
		{"Ready", domain.LedgerEntry{Role: domain.RoleEditor, Output: &domain.State{EditingComplete: true}}, "ready to write"},
		{"Review", domain.LedgerEntry{Role: domain.RoleEditor, Output: &domain.State{EditorDecision: domain.DecisionRevise}}, "decision: revise"},
		{
			"Research",
			domain.LedgerEntry{
				Role:   domain.RoleResearcher,
				Input:  &domain.State{ResearchResults: []domain.ResearchResult{{Query: "old"}}},
				Output: &domain.State{ResearchResults: []domain.ResearchResult{{Query: "old"}, {Query: "a"}, {Query: "b", Error: "down"}}},
			},
			"2 results (1 searches failed)",
		},
		{"Critique", domain.LedgerEntry{Role: domain.RoleCritic, Output: &domain.State{Feedback: strPtr("too short")}}, "feedback 2 words"},
		{"No Output", domain.LedgerEntry{Role: domain.RoleWriter}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.entry))
		})
	}
}
