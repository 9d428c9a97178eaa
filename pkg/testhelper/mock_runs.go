package testhelper

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

// MockRunRepository is an in-memory workflow.Repository. Every write stores
// a copy, and the sequence of persisted states is kept in States.
type MockRunRepository struct {
	mu     sync.Mutex
	runs   map[int64]workflow.Run
	States []workflow.State

	CreateErr error
	SaveErr   error
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{runs: make(map[int64]workflow.Run)}
}

func (m *MockRunRepository) Create(ctx context.Context, run *workflow.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if run.IdempotencyKey != "" {
		for _, r := range m.runs {
			if r.IdempotencyKey == run.IdempotencyKey {
				return workflow.ErrDuplicateIdempotencyKey
			}
		}
	}
	m.runs[run.ID] = *run
	m.States = append(m.States, run.State)
	return nil
}

func (m *MockRunRepository) Save(ctx context.Context, run *workflow.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.runs[run.ID] = *run
	m.States = append(m.States, run.State)
	return nil
}

// Put stores a run directly, bypassing state history.
func (m *MockRunRepository) Put(run *workflow.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
}

func (m *MockRunRepository) FindByID(ctx context.Context, id int64) (*workflow.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MockRunRepository) FindByIdempotencyKey(ctx context.Context, key string) (*workflow.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if key != "" && r.IdempotencyKey == key {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockRunRepository) ListByStatus(ctx context.Context, statuses []workflow.Status, limit int) ([]*workflow.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflow.Run
	for _, r := range m.runs {
		if len(statuses) > 0 && !containsStatus(statuses, r.Status) {
			continue
		}
		found := r
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRunRepository) CountByStatus(ctx context.Context, status workflow.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.runs {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockRunRepository) CountStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.runs {
		if r.Stale(cutoff) {
			n++
		}
	}
	return n, nil
}

func (m *MockRunRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*workflow.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflow.Run
	for _, r := range m.runs {
		if r.Stale(cutoff) {
			found := r
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsStatus(list []workflow.Status, s workflow.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MockResultCache is a map-backed workflow.ResultCache.
type MockResultCache struct {
	mu      sync.Mutex
	entries map[string]workflow.TierChangeResult
}

func NewMockResultCache() *MockResultCache {
	return &MockResultCache{entries: make(map[string]workflow.TierChangeResult)}
}

func (c *MockResultCache) Get(ctx context.Context, key string) (*workflow.TierChangeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return &res, true
}

func (c *MockResultCache) Set(ctx context.Context, key string, res *workflow.TierChangeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *res
}

// SequenceIDs hands out increasing ids starting at 1.
type SequenceIDs struct {
	mu   sync.Mutex
	next int64
}

func (s *SequenceIDs) GenerateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}
