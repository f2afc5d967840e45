package ports

import (
	"context"
	"testing"
	"time"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		run := ContractRun(t, runID)

		err := store.Save(ctx, run)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, run.ID, loaded.ID)
		assert.Equal(t, run.Status, loaded.Status)
		assert.Equal(t, run.Next, loaded.Next)
		assert.Equal(t, run.History, loaded.History)
		assert.Equal(t, "bees", domain.Value(loaded.State.Thesis))
		assert.Equal(t, 1, loaded.State.EditingIteration)
		require.NotNil(t, loaded.Ledger)
		assert.Equal(t, 1, loaded.Ledger.Len())

		entry, ok := loaded.Ledger.At(0)
		require.True(t, ok)
		assert.Equal(t, domain.RoleEditor, entry.Role)
		assert.Nil(t, entry.Input.Thesis, "input snapshot must be preserved")
	})

	t.Run("Load Is A Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.State.Thesis = domain.Ptr("mutated")

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "bees", domain.Value(again.State.Thesis))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, ContractRun(t, runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, ContractRun(t, id1))
		_ = store.Save(ctx, ContractRun(t, id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}

// ContractRun builds a run that has completed one editor step.
func ContractRun(t *testing.T, id string) *domain.Run {
	t.Helper()
	initial, err := domain.NewState("urban beekeeping", domain.DefaultLimits(), domain.DefaultModels())
	require.NoError(t, err)

	next := initial.Clone()
	next.Thesis = domain.Ptr("bees")
	next.Outline = domain.Ptr("I. Intro")
	next.ResearchQueries = []string{"bee population trends"}
	next.EditingIteration = 1

	now := time.Now().UTC().Truncate(time.Second)
	ledger := domain.NewLedger()
	ledger.Append(domain.LedgerEntry{
		Role:       domain.RoleEditor,
		Visit:      1,
		Outcome:    domain.OutcomeCompleted,
		Edge:       domain.EdgeEditingResearch,
		Next:       domain.RoleResearcher,
		Counters:   domain.CountersOf(next),
		Input:      initial,
		Output:     next,
		Changes:    domain.Diff(initial, next),
		StartedAt:  now,
		FinishedAt: now,
	})

	return &domain.Run{
		ID:        id,
		Status:    domain.RunEditing,
		State:     next,
		History:   domain.History{domain.RoleEditor},
		Next:      domain.RoleResearcher,
		Ledger:    ledger,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
