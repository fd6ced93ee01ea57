// Package memory provides a fully in-memory store.Store implementation.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/store"
)

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	runs     map[string]*store.Run
	journeys map[string][]*store.JourneyRecord // key: run ID
	steps    map[string][]*store.StepRecord    // key: journey ID
	order    []string                          // run IDs in creation order

	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		runs:     make(map[string]*store.Run),
		journeys: make(map[string][]*store.JourneyRecord),
		steps:    make(map[string][]*store.StepRecord),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping succeeds unless the store has been closed.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return synthetics.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Further operations fail with
// ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CreateRun persists a new run.
func (m *Store) CreateRun(_ context.Context, r *store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return synthetics.ErrStoreClosed
	}
	key := r.ID.String()
	if _, exists := m.runs[key]; !exists {
		m.order = append(m.order, key)
	}
	cp := *r
	m.runs[key] = &cp
	return nil
}

// UpdateRun persists changes to an existing run.
func (m *Store) UpdateRun(_ context.Context, r *store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return synthetics.ErrStoreClosed
	}
	key := r.ID.String()
	if _, exists := m.runs[key]; !exists {
		return synthetics.ErrRunNotFound
	}
	cp := *r
	m.runs[key] = &cp
	return nil
}

// GetRun retrieves a run by ID.
func (m *Store) GetRun(_ context.Context, runID id.ID) (*store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, synthetics.ErrStoreClosed
	}
	r, ok := m.runs[runID.String()]
	if !ok {
		return nil, synthetics.ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRuns returns up to limit runs, newest first.
func (m *Store) ListRuns(_ context.Context, limit int) ([]*store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, synthetics.ErrStoreClosed
	}
	runs := make([]*store.Run, 0, len(m.order))
	for _, key := range m.order {
		cp := *m.runs[key]
		runs = append(runs, &cp)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveJourney persists one journey outcome.
func (m *Store) SaveJourney(_ context.Context, rec *store.JourneyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return synthetics.ErrStoreClosed
	}
	cp := *rec
	key := rec.RunID.String()
	m.journeys[key] = append(m.journeys[key], &cp)
	return nil
}

// ListJourneys returns a run's journey records in insertion order.
func (m *Store) ListJourneys(_ context.Context, runID id.ID) ([]*store.JourneyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, synthetics.ErrStoreClosed
	}
	recs := m.journeys[runID.String()]
	out := make([]*store.JourneyRecord, 0, len(recs))
	for _, rec := range recs {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// SaveStep persists one step outcome.
func (m *Store) SaveStep(_ context.Context, rec *store.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return synthetics.ErrStoreClosed
	}
	cp := *rec
	if rec.Metrics != nil {
		cp.Metrics = make(map[string]float64, len(rec.Metrics))
		for k, v := range rec.Metrics {
			cp.Metrics[k] = v
		}
	}
	key := rec.JourneyID.String()
	m.steps[key] = append(m.steps[key], &cp)
	return nil
}

// ListSteps returns a journey's step records ordered by index.
func (m *Store) ListSteps(_ context.Context, journeyID id.ID) ([]*store.StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, synthetics.ErrStoreClosed
	}
	recs := m.steps[journeyID.String()]
	out := make([]*store.StepRecord, 0, len(recs))
	for _, rec := range recs {
		cp := *rec
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out, nil
}
