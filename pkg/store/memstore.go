package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests, in the same spirit as the chat
// fake: state is plain maps, every mutation is recorded.
type MemStore struct {
	mu         sync.Mutex
	registered map[string]Registered
	greeted    map[string]bool
	jobs       []Job

	Upserts int
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		registered: make(map[string]Registered),
		greeted:    make(map[string]bool),
	}
}

func (m *MemStore) FindRegistered(ctx context.Context, uniqueID string) (*Registered, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.registered[uniqueID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := rec
	return &copied, nil
}

func (m *MemStore) UpsertRegistered(ctx context.Context, rec *Registered) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[rec.UniqueID] = *rec
	m.Upserts++
	return nil
}

func (m *MemStore) WasGreeted(ctx context.Context, uniqueID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.greeted[uniqueID], nil
}

func (m *MemStore) MarkGreeted(ctx context.Context, uniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.greeted[uniqueID] = true
	return nil
}

func (m *MemStore) ListJobs(ctx context.Context) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]Job, len(m.jobs))
	copy(jobs, m.jobs)
	return jobs, nil
}

// SeedJobs replaces the stored job listings.
func (m *MemStore) SeedJobs(jobs ...Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append([]Job(nil), jobs...)
}

// Snapshot returns a copy of the stored registration, if any.
func (m *MemStore) Snapshot(uniqueID string) (Registered, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.registered[uniqueID]
	return rec, ok
}
