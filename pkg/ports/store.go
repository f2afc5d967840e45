package ports

import (
	"context"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// RunStore defines the interface for persisting runs.
// This allows for durable execution: a run cancelled between steps can be
// loaded again and resumed where it stopped.
type RunStore interface {
	// Save persists the run under run.ID.
	Save(ctx context.Context, run *domain.Run) error

	// Load retrieves the run for a given ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Run, error)

	// Delete removes the run for a given ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
