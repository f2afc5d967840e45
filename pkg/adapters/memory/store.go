// Package memory provides an in-process RunStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Run),
	}
}

// Save persists a copy of the run.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	copied := run.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored run by pointer.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns the stored run IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
