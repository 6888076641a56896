package apikey

import (
	"context"
	"errors"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("apikey repository: not found")

type Repository interface {
	CreateKey(ctx context.Context, item model.TenantAPIKeyItem) error
	ListKeys(ctx context.Context, tenantID string) ([]model.TenantAPIKeyItem, error)
	DeleteKey(ctx context.Context, tenantID, keyID string) error
	FindByKey(ctx context.Context, apiKey string) (model.TenantAPIKeyItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateKey(ctx context.Context, item model.TenantAPIKeyItem) error {
	return r.db.Client.PutItem(ctx, model.TenantAPIKeysTable, item)
}

func (r *DynamoRepository) ListKeys(ctx context.Context, tenantID string) ([]model.TenantAPIKeyItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.TenantAPIKeysTable,
		nil,
		"tenantId = :tenantId",
		map[string]types.AttributeValue{
			":tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	out := make([]model.TenantAPIKeyItem, 0, len(items))
	for _, raw := range items {
		var item model.TenantAPIKeyItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *DynamoRepository) DeleteKey(ctx context.Context, tenantID, keyID string) error {
	return r.db.Client.DeleteItem(ctx, model.TenantAPIKeysTable, map[string]types.AttributeValue{
		"tenantId": &types.AttributeValueMemberS{Value: tenantID},
		"keyId":    &types.AttributeValueMemberS{Value: keyID},
	})
}

func (r *DynamoRepository) FindByKey(ctx context.Context, apiKey string) (model.TenantAPIKeyItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.TenantAPIKeysTable,
		strPtr("byApiKey"),
		"apiKey = :apiKey",
		map[string]types.AttributeValue{
			":apiKey": &types.AttributeValueMemberS{Value: apiKey},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.TenantAPIKeyItem{}, err
	}
	if len(items) == 0 {
		return model.TenantAPIKeyItem{}, ErrNotFound
	}

	var item model.TenantAPIKeyItem
	if err := attributevalue.UnmarshalMap(items[0], &item); err != nil {
		return model.TenantAPIKeyItem{}, err
	}
	return item, nil
}

func strPtr(s string) *string {
	return &s
}
