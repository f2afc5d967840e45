package middleware_test

import (
	"context"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// MockStore is a simple map-based store that keeps exactly what it is given,
// so tests can inspect the stored form.
type MockStore struct {
	data map[string]*domain.Run
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Run),
	}
}

func (s *MockStore) Save(ctx context.Context, run *domain.Run) error {
	s.data[run.ID] = run
	return nil
}

func (s *MockStore) Load(ctx context.Context, runID string) (*domain.Run, error) {
	run, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

func (s *MockStore) Delete(ctx context.Context, runID string) error {
	delete(s.data, runID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.RunStore = (*MockStore)(nil)
