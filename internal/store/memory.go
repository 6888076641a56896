package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"visitor-tracker-backend/internal/model"
)

// Memory is an in-process Store used by tests and local development. It is
// shared between the presence tests and the store tests, which is why it
// lives here instead of in a _test.go file.
type Memory struct {
	mu     sync.Mutex
	states map[string]map[string]model.VisitorRecord
	wakes  map[string]time.Time
	conns  map[string]model.ConnectionMetaItem

	// FailSaves makes every SaveState return an error, for exercising the
	// not-persisted path.
	FailSaves bool
	// SaveCount counts successful SaveState calls.
	SaveCount int
}

func NewMemory() *Memory {
	return &Memory{
		states: make(map[string]map[string]model.VisitorRecord),
		wakes:  make(map[string]time.Time),
		conns:  make(map[string]model.ConnectionMetaItem),
	}
}

func (m *Memory) LoadState(ctx context.Context, tenantID string) (map[string]model.VisitorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.VisitorRecord, len(m.states[tenantID]))
	for id, rec := range m.states[tenantID] {
		out[id] = rec
	}
	return out, nil
}

func (m *Memory) SaveState(ctx context.Context, tenantID string, visitors map[string]model.VisitorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return context.DeadlineExceeded
	}

	snapshot := make(map[string]model.VisitorRecord, len(visitors))
	for id, rec := range visitors {
		snapshot[id] = rec
	}
	m.states[tenantID] = snapshot
	m.SaveCount++
	return nil
}

func (m *Memory) GetWake(ctx context.Context, tenantID string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.wakes[tenantID]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return at, nil
}

func (m *Memory) SetWake(ctx context.Context, tenantID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wakes[tenantID] = at
	return nil
}

func (m *Memory) ClearWake(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.wakes, tenantID)
	return nil
}

func (m *Memory) PutConnection(ctx context.Context, meta model.ConnectionMetaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[meta.TenantID+"#"+meta.ConnID] = meta
	return nil
}

func (m *Memory) DeleteConnection(ctx context.Context, tenantID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, tenantID+"#"+connID)
	return nil
}

func (m *Memory) ListConnections(ctx context.Context, tenantID string) ([]model.ConnectionMetaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.ConnectionMetaItem, 0)
	for key, meta := range m.conns {
		if strings.HasPrefix(key, tenantID+"#") {
			out = append(out, meta)
		}
	}
	return out, nil
}

// Snapshot returns a copy of the persisted map for assertions.
func (m *Memory) Snapshot(tenantID string) map[string]model.VisitorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.VisitorRecord, len(m.states[tenantID]))
	for id, rec := range m.states[tenantID] {
		out[id] = rec
	}
	return out
}
