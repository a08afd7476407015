package storage

import (
	"context"
	"sync"

	"github.com/goodtune/focustime/internal/activity"
)

// MemoryStore keeps the timeline in process memory. It backs tests only;
// nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	timeline activity.Timeline
	saves    int
	clears   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// Timings implements Store.
func (m *MemoryStore) Timings() TimingStore { return m }

// Load implements TimingStore.
func (m *MemoryStore) Load(ctx context.Context) (activity.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeline == nil {
		return nil, ErrNotFound
	}
	return m.timeline.Clone(), nil
}

// Save implements TimingStore.
func (m *MemoryStore) Save(ctx context.Context, timeline activity.Timeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeline = timeline.Clone()
	m.saves++
	return nil
}

// Clear implements TimingStore.
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeline = nil
	m.clears++
	return nil
}

// Counts returns how many saves and clears the store has seen.
func (m *MemoryStore) Counts() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}
