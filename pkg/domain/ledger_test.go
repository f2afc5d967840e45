package domain_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

func TestLedger_AppendAndQuery(t *testing.T) {
	l := domain.NewLedger()
	roles := []domain.Role{domain.RoleEditor, domain.RoleResearcher, domain.RoleEditor, domain.RoleWriter}
	for i, r := range roles {
		idx := l.Append(domain.LedgerEntry{Role: r, Visit: i + 1, Outcome: domain.OutcomeCompleted})
		assert.Equal(t, i, idx)
	}

	assert.Equal(t, 4, l.Len())
	assert.Len(t, l.ByRole(domain.RoleEditor), 2)
	assert.Len(t, l.Since(2), 2)
	assert.Nil(t, l.Since(10))

	e, ok := l.At(3)
	require.True(t, ok)
	assert.Equal(t, domain.RoleWriter, e.Role)
	assert.Equal(t, "Writer #4", e.Label())

	_, ok = l.At(4)
	assert.False(t, ok)
}

func TestLedger_ConcurrentReaders(t *testing.T) {
	l := domain.NewLedger()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			l.Append(domain.LedgerEntry{Role: domain.RoleCritic, Outcome: domain.OutcomeCompleted})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for last < 200 {
				entries := l.Entries()
				// Readers never observe a shrinking or reordered ledger.
				assert.GreaterOrEqual(t, len(entries), last)
				for i, e := range entries {
					assert.Equal(t, i, e.Index)
				}
				last = len(entries)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, l.Completed())
}

func TestLedger_JSON(t *testing.T) {
	l := domain.NewLedger()
	l.Append(domain.LedgerEntry{Role: domain.RoleEditor, Outcome: domain.OutcomeCompleted, Edge: domain.EdgeEditingResearch})
	l.Append(domain.LedgerEntry{Role: domain.RoleResearcher, Outcome: domain.OutcomeFailed, Error: "timeout"})

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var back domain.Ledger
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l.Entries(), back.Entries())
	assert.Equal(t, 1, back.Completed())
}
