package apikey

import (
	"context"
	"errors"
	"strings"
	"time"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"
	"visitor-tracker-backend/utils"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type Key struct {
	KeyID     string
	APIKey    string
	CreatedAt time.Time
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Issue(ctx context.Context, tenantID string) (Key, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Key{}, newError(ErrorCodeValidation, "tenant id is required", nil)
	}

	now := s.now().UTC()
	item := model.TenantAPIKeyItem{
		TenantID:  tenantID,
		KeyID:     uuid.NewString(),
		APIKey:    utils.GenerateAPIKey(),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := s.repo.CreateKey(ctx, item); err != nil {
		return Key{}, newError(ErrorCodeInternal, "failed to create api key", err)
	}

	return Key{
		KeyID:     item.KeyID,
		APIKey:    item.APIKey,
		CreatedAt: now,
	}, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Key, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, newError(ErrorCodeValidation, "tenant id is required", nil)
	}

	items, err := s.repo.ListKeys(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list api keys", err)
	}

	out := make([]Key, 0, len(items))
	for _, item := range items {
		createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
		out = append(out, Key{
			KeyID:     item.KeyID,
			APIKey:    item.APIKey,
			CreatedAt: createdAt,
		})
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, keyID string) error {
	tenantID = strings.TrimSpace(tenantID)
	keyID = strings.TrimSpace(keyID)
	if tenantID == "" || keyID == "" {
		return newError(ErrorCodeValidation, "tenant id and key id are required", nil)
	}

	if err := s.repo.DeleteKey(ctx, tenantID, keyID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete api key", err)
	}
	return nil
}

// ResolveTenant maps an API-key credential to its tenant id. This is the
// presence router's KeyResolver.
func (s *Service) ResolveTenant(ctx context.Context, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", newError(ErrorCodeValidation, "api key is required", nil)
	}

	item, err := s.repo.FindByKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", newError(ErrorCodeUnauthorized, "unknown api key", err)
		}
		return "", newError(ErrorCodeInternal, "failed to resolve api key", err)
	}
	return item.TenantID, nil
}
