package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// DefaultLockTTL is the distributed lock lease when none is configured.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates run access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.RunStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks by run ID

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock lease. It must outlive one step.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new run Manager with the given persistence store.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Load retrieves an existing run from the store without taking the run lock.
// Stores replace runs atomically, so a reader sees the last committed step
// even while another step is in flight.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.Load(ctx, runID)
}

// LoadOrStart loads a run. If it does not exist, start builds a new one which
// is persisted immediately to reserve the ID.
func (m *Manager) LoadOrStart(ctx context.Context, runID string, start func() (*domain.Run, error)) (*domain.Run, error) {
	var run *domain.Run
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		run, err = m.store.Load(ctx, runID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrRunNotFound) {
			return fmt.Errorf("failed to check run existence: %w", err)
		}

		run, err = start()
		if err != nil {
			return err
		}
		if run.ID != runID {
			return fmt.Errorf("started run has id %q, want %q", run.ID, runID)
		}
		if err := m.store.Save(ctx, run); err != nil {
			return fmt.Errorf("failed to initialize run: %w", err)
		}
		return nil
	})
	return run, err
}

// Save persists the run.
func (m *Manager) Save(ctx context.Context, run *domain.Run) error {
	return m.WithLock(ctx, run.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, run)
	})
}

// Delete removes the run from the store.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying run store.
func (m *Manager) Store() ports.RunStore {
	return m.store
}

// WithLock executes fn while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
