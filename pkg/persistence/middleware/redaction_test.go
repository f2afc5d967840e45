package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/persistence/middleware"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

func researchedRun(t *testing.T) *domain.Run {
	t.Helper()
	run := ports.ContractRun(t, "redact-run")

	before := run.State
	after := before.Clone()
	after.ResearchQueries = []string{}
	after.ResearchResults = append(after.ResearchResults, domain.ResearchResult{
		Query: "bee population trends",
		Hits: []domain.SearchHit{{
			Title:   "Contact jane@example.org",
			URL:     "https://example.org/bees",
			Content: "Call +44 20 7946 0958 for hive visits.",
		}},
		Summary: "Reach the author at jane@example.org.",
		At:      time.Now().UTC(),
	})
	run.Ledger.Append(domain.LedgerEntry{
		Role:    domain.RoleResearcher,
		Visit:   1,
		Outcome: domain.OutcomeCompleted,
		Input:   before,
		Output:  after,
		Changes: domain.Diff(before, after),
	})
	run.State = after
	run.History = run.History.Append(domain.RoleResearcher)
	return run
}

func TestRedactionMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	mw, err := middleware.NewRedactionMiddleware(middleware.DefaultRedactionPatterns)
	require.NoError(t, err)
	store := mw(underlyingStore)

	ctx := context.Background()
	run := researchedRun(t)
	require.NoError(t, store.Save(ctx, run))

	// The in-memory run is untouched.
	hit := run.State.ResearchResults[0].Hits[0]
	if hit.Content != "Call +44 20 7946 0958 for hive visits." {
		t.Error("Middleware modified original run in memory!")
	}

	stored, err := underlyingStore.Load(ctx, "redact-run")
	require.NoError(t, err)

	result := stored.State.ResearchResults[0]
	assert.Equal(t, "Contact ***", result.Hits[0].Title)
	assert.Equal(t, "Call *** for hive visits.", result.Hits[0].Content)
	assert.Equal(t, "Reach the author at ***.", result.Summary)
	assert.Equal(t, "https://example.org/bees", result.Hits[0].URL)

	entry, ok := stored.Ledger.At(1)
	require.True(t, ok)
	assert.Equal(t, "Call *** for hive visits.", entry.Output.ResearchResults[0].Hits[0].Content)
	assert.Equal(t, "Reach the author at ***.", entry.Changes.ResearchAppended[0].Summary)

	original, _ := run.Ledger.At(1)
	assert.Equal(t, "Reach the author at jane@example.org.", original.Changes.ResearchAppended[0].Summary)
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactionMiddleware([]string{"("})
	var confErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestChain_EncryptsRedactedRuns(t *testing.T) {
	underlyingStore := NewMockStore()
	redact, err := middleware.NewRedactionMiddleware(middleware.DefaultRedactionPatterns)
	require.NoError(t, err)
	store := middleware.Chain(underlyingStore, redact, encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, researchedRun(t)))

	stored, err := underlyingStore.Load(ctx, "redact-run")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)

	loaded, err := store.Load(ctx, "redact-run")
	require.NoError(t, err)
	assert.Equal(t, "Call *** for hive visits.", loaded.State.ResearchResults[0].Hits[0].Content)
}
