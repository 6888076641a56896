// Package store is the durable persistence boundary for tenant presence
// state: the whole-map visitor snapshot, the single scheduled cleanup wake,
// and the per-connection identity metadata that survives process restarts.
package store

import (
	"context"
	"errors"
	"time"

	"visitor-tracker-backend/internal/model"
)

// ErrNotFound is returned when a tenant has no persisted item for the
// requested key.
var ErrNotFound = errors.New("store: not found")

// Store writes must be awaited by the triggering operation before it is
// reported complete, so the initiator always reads its own write.
type Store interface {
	// LoadState returns the persisted visitor map for a tenant. A tenant
	// that has never persisted yields an empty map, not ErrNotFound.
	LoadState(ctx context.Context, tenantID string) (map[string]model.VisitorRecord, error)
	// SaveState replaces the whole snapshot for a tenant.
	SaveState(ctx context.Context, tenantID string, visitors map[string]model.VisitorRecord) error

	// GetWake returns the pending cleanup timestamp, or ErrNotFound when
	// no wake is scheduled.
	GetWake(ctx context.Context, tenantID string) (time.Time, error)
	SetWake(ctx context.Context, tenantID string, at time.Time) error
	ClearWake(ctx context.Context, tenantID string) error

	PutConnection(ctx context.Context, meta model.ConnectionMetaItem) error
	DeleteConnection(ctx context.Context, tenantID, connID string) error
	ListConnections(ctx context.Context, tenantID string) ([]model.ConnectionMetaItem, error)
}
