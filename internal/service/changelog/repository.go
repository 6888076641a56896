package changelog

import (
	"context"
	"errors"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("changelog repository: not found")

type Repository interface {
	CreateEntry(ctx context.Context, entry model.ChangelogEntryItem) error
	GetEntry(ctx context.Context, entryID string) (model.ChangelogEntryItem, error)
	ListEntries(ctx context.Context) ([]model.ChangelogEntryItem, error)
	DeleteEntry(ctx context.Context, entryID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateEntry(ctx context.Context, entry model.ChangelogEntryItem) error {
	return r.db.Client.PutItem(ctx, model.ChangelogTable, entry)
}

func (r *DynamoRepository) GetEntry(ctx context.Context, entryID string) (model.ChangelogEntryItem, error) {
	var entry model.ChangelogEntryItem
	err := r.db.Client.GetItem(ctx, model.ChangelogTable, map[string]types.AttributeValue{
		"entryId": &types.AttributeValueMemberS{Value: entryID},
	}, &entry)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.ChangelogEntryItem{}, ErrNotFound
		}
		return model.ChangelogEntryItem{}, err
	}
	return entry, nil
}

func (r *DynamoRepository) ListEntries(ctx context.Context) ([]model.ChangelogEntryItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.ChangelogTable,
		"attribute_exists(entryId)",
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	out := make([]model.ChangelogEntryItem, 0, len(items))
	for _, raw := range items {
		var entry model.ChangelogEntryItem
		if err := attributevalue.UnmarshalMap(raw, &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *DynamoRepository) DeleteEntry(ctx context.Context, entryID string) error {
	return r.db.Client.DeleteItem(ctx, model.ChangelogTable, map[string]types.AttributeValue{
		"entryId": &types.AttributeValueMemberS{Value: entryID},
	})
}
