package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/internal/runtime"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/memory"
	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/redis"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Run
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, run *domain.Run) error {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Run)
	}
	s.data[run.ID] = run
	return nil
}

func (s *SlowStore) Load(ctx context.Context, runID string) (*domain.Run, error) {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, ok := s.data[runID]; ok {
		return run, nil
	}
	return nil, domain.ErrRunNotFound
}

func (s *SlowStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func startFunc(t *testing.T, engine *runtime.Engine, id string) func() (*domain.Run, error) {
	return func() (*domain.Run, error) {
		state, err := domain.NewState("Why cities should keep bees", domain.DefaultLimits(), domain.DefaultModels())
		if err != nil {
			return nil, err
		}
		return engine.Start(id, state)
	}
}

func newEngine(t *testing.T) *runtime.Engine {
	t.Helper()
	engine, err := runtime.NewEngine(stub.Agents())
	require.NoError(t, err)
	return engine
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	var inside, maxInside int
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				err := store.Save(ctx, &domain.Run{ID: id})

				mu.Lock()
				inside--
				mu.Unlock()
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "critical sections for one run must not overlap")
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	engine := newEngine(t)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := map[*domain.Run]bool{}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := manager.LoadOrStart(ctx, id, startFunc(t, engine, id))
			assert.NoError(t, err)
			assert.NotNil(t, run)
			mu.Lock()
			created[run] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, created, 1, "both callers see the same stored run")

	run, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, run.Next)
}

func TestManager_LoadWhileLocked(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, manager.Save(ctx, &domain.Run{ID: "held", Status: domain.RunWriting}))

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "held", func(context.Context) error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	readCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	run, err := manager.Load(readCtx, "held")
	require.NoError(t, err)
	assert.Equal(t, domain.RunWriting, run.Status)
}

func TestManager_LoadCancelled(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.Load(ctx, "any")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_LoadOrStart_IDMismatch(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	engine := newEngine(t)

	_, err := manager.LoadOrStart(context.Background(), "wanted", startFunc(t, engine, "other"))
	assert.Error(t, err)
}

func TestManager_Drive(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	engine := newEngine(t)
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "drive", startFunc(t, engine, "drive"))
	require.NoError(t, err)

	var seen []int
	run, err := manager.Drive(ctx, "drive", engine, func(r *domain.Run) {
		seen = append(seen, r.History.Len())
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, run.Status)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)

	stored, err := store.Load(ctx, "drive")
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, stored.Status)
	assert.Equal(t, 4, stored.Ledger.Len())

	// Driving a finished run is a no-op.
	again, err := manager.Drive(ctx, "drive", engine)
	require.NoError(t, err)
	assert.Equal(t, 4, again.History.Len())
}

func TestManager_Drive_NotFound(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, err := manager.Drive(context.Background(), "missing", newEngine(t))
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

// cancelAfter cancels the drive context once n steps have been committed.
type cancelAfter struct {
	engine *runtime.Engine
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Step(ctx context.Context, run *domain.Run) (*domain.Run, error) {
	next, err := c.engine.Step(ctx, run)
	if next.History.Len() >= c.n {
		c.cancel()
	}
	return next, err
}

func TestManager_Drive_ResumeAfterCancel(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	engine := newEngine(t)

	_, err := manager.LoadOrStart(context.Background(), "resume", startFunc(t, engine, "resume"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run, err := manager.Drive(ctx, "resume", &cancelAfter{engine: engine, n: 2, cancel: cancel})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, run.History.Len())

	stored, err := store.Load(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.History.Len(), "committed steps are persisted")
	assert.Equal(t, domain.RoleCritic, stored.Next)

	run, err = manager.Drive(context.Background(), "resume", engine)
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, run.Status)
	assert.Equal(t, 4, run.Ledger.Len())
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.New(mr.Addr(), "", 0)
	defer client.Close()

	var locker ports.DistributedLocker = redis.NewLocker(client.Client(), "essay:lock:")

	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))
	engine := newEngine(t)
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "locked", startFunc(t, engine, "locked"))
	require.NoError(t, err)

	run, err := manager.Drive(ctx, "locked", engine)
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, run.Status)
	assert.Empty(t, mr.Keys(), "every lock is released")
}
