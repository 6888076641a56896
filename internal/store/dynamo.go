package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore keeps all presence items in one table. Item kinds are
// distinguished by the tenant-scoped PK: STATE, WAKE and CONN#<id>.
type DynamoStore struct {
	db *database.Database
}

func NewDynamoStore(db *database.Database) *DynamoStore {
	return &DynamoStore{db: db}
}

func statePK(tenantID string) string {
	return model.TenantScopedPK(tenantID, "STATE")
}

func wakePK(tenantID string) string {
	return model.TenantScopedPK(tenantID, "WAKE")
}

func connPK(tenantID, connID string) string {
	return model.TenantScopedPK(tenantID, "CONN#"+connID)
}

func pkKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": database.AttrString(pk),
	}
}

func (s *DynamoStore) LoadState(ctx context.Context, tenantID string) (map[string]model.VisitorRecord, error) {
	var item model.TenantStateItem
	err := s.db.Client.GetItem(ctx, model.PresenceTable, pkKey(statePK(tenantID)), &item)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return make(map[string]model.VisitorRecord), nil
		}
		return nil, fmt.Errorf("load state %s: %w", tenantID, err)
	}
	if item.Visitors == nil {
		item.Visitors = make(map[string]model.VisitorRecord)
	}
	return item.Visitors, nil
}

func (s *DynamoStore) SaveState(ctx context.Context, tenantID string, visitors map[string]model.VisitorRecord) error {
	item := model.TenantStateItem{
		PK:       statePK(tenantID),
		TenantID: tenantID,
		Visitors: visitors,
	}
	if err := s.db.Client.PutItem(ctx, model.PresenceTable, item); err != nil {
		return fmt.Errorf("save state %s: %w", tenantID, err)
	}
	return nil
}

func (s *DynamoStore) GetWake(ctx context.Context, tenantID string) (time.Time, error) {
	var item model.TenantWakeItem
	err := s.db.Client.GetItem(ctx, model.PresenceTable, pkKey(wakePK(tenantID)), &item)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get wake %s: %w", tenantID, err)
	}
	return time.Unix(item.WakeAt, 0).UTC(), nil
}

func (s *DynamoStore) SetWake(ctx context.Context, tenantID string, at time.Time) error {
	item := model.TenantWakeItem{
		PK:       wakePK(tenantID),
		TenantID: tenantID,
		WakeAt:   at.Unix(),
	}
	if err := s.db.Client.PutItem(ctx, model.PresenceTable, item); err != nil {
		return fmt.Errorf("set wake %s: %w", tenantID, err)
	}
	return nil
}

func (s *DynamoStore) ClearWake(ctx context.Context, tenantID string) error {
	if err := s.db.Client.DeleteItem(ctx, model.PresenceTable, pkKey(wakePK(tenantID))); err != nil {
		return fmt.Errorf("clear wake %s: %w", tenantID, err)
	}
	return nil
}

func (s *DynamoStore) PutConnection(ctx context.Context, meta model.ConnectionMetaItem) error {
	meta.PK = connPK(meta.TenantID, meta.ConnID)
	if err := s.db.Client.PutItem(ctx, model.PresenceTable, meta); err != nil {
		return fmt.Errorf("put connection %s/%s: %w", meta.TenantID, meta.ConnID, err)
	}
	return nil
}

func (s *DynamoStore) DeleteConnection(ctx context.Context, tenantID, connID string) error {
	if err := s.db.Client.DeleteItem(ctx, model.PresenceTable, pkKey(connPK(tenantID, connID))); err != nil {
		return fmt.Errorf("delete connection %s/%s: %w", tenantID, connID, err)
	}
	return nil
}

func (s *DynamoStore) ListConnections(ctx context.Context, tenantID string) ([]model.ConnectionMetaItem, error) {
	items, err := s.db.Client.ScanAllWithFilter(
		ctx,
		model.PresenceTable,
		"tenantId = :tenantId AND begins_with(pk, :prefix)",
		map[string]types.AttributeValue{
			":tenantId": database.AttrString(tenantID),
			":prefix":   database.AttrString(model.TenantScopedPK(tenantID, "CONN#")),
		},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections %s: %w", tenantID, err)
	}

	out := make([]model.ConnectionMetaItem, 0, len(items))
	for _, raw := range items {
		var meta model.ConnectionMetaItem
		if err := attributevalue.UnmarshalMap(raw, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal connection item: %w", err)
		}
		out = append(out, meta)
	}
	return out, nil
}
