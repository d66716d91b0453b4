package store

import (
	"context"
	"sort"
	"sync"

	"github.com/yourusername/greedi-fi/internal/models"
)

// MemoryStrategyStore is a concurrency-safe in-process strategy store
type MemoryStrategyStore struct {
	mu         sync.RWMutex
	strategies map[string]*models.Strategy
}

// NewMemoryStrategyStore creates an empty in-memory strategy store
func NewMemoryStrategyStore() *MemoryStrategyStore {
	return &MemoryStrategyStore{strategies: make(map[string]*models.Strategy)}
}

// Put stores or replaces a strategy by id
func (s *MemoryStrategyStore) Put(ctx context.Context, strategy *models.Strategy) error {
	if strategy.ID == "" {
		return models.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *strategy
	s.strategies[strategy.ID] = &cp
	return nil
}

// Get retrieves a strategy by id
func (s *MemoryStrategyStore) Get(ctx context.Context, id string) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strategy, ok := s.strategies[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *strategy
	return &cp, nil
}

// List returns all stored strategies ordered by id
func (s *MemoryStrategyStore) List(ctx context.Context) ([]*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Strategy, 0, len(s.strategies))
	for _, strategy := range s.strategies {
		cp := *strategy
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a strategy by id
func (s *MemoryStrategyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.strategies, id)
	return nil
}

// MemoryResultStore is a concurrency-safe in-process backtest result store
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]*models.BacktestResult
}

// NewMemoryResultStore creates an empty in-memory result store
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]*models.BacktestResult)}
}

// Put stores a result by id. Results are written once and never mutated.
func (s *MemoryResultStore) Put(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == "" {
		return models.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.ID]; ok {
		return models.ErrDuplicateKey
	}
	s.results[result.ID] = result
	return nil
}

// Get retrieves a result by id
func (s *MemoryResultStore) Get(ctx context.Context, id string) (*models.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return result, nil
}

// List returns all stored results ordered by id
func (s *MemoryResultStore) List(ctx context.Context) ([]*models.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.BacktestResult, 0, len(s.results))
	for _, result := range s.results {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
