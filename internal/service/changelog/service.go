package changelog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
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

type Entry struct {
	EntryID     string
	Title       string
	Body        string
	PublishedAt time.Time
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

func (s *Service) Publish(ctx context.Context, title, body string) (Entry, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return Entry{}, newError(ErrorCodeValidation, "title and body are required", nil)
	}

	now := s.now().UTC()
	item := model.ChangelogEntryItem{
		EntryID:     uuid.NewString(),
		Title:       title,
		Body:        body,
		PublishedAt: now.Format(time.RFC3339),
		CreatedAt:   now.Format(time.RFC3339),
	}
	if err := s.repo.CreateEntry(ctx, item); err != nil {
		return Entry{}, newError(ErrorCodeInternal, "failed to publish entry", err)
	}

	return Entry{
		EntryID:     item.EntryID,
		Title:       title,
		Body:        body,
		PublishedAt: now,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	items, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list entries", err)
	}

	out := make([]Entry, 0, len(items))
	for _, item := range items {
		publishedAt, _ := time.Parse(time.RFC3339, item.PublishedAt)
		out = append(out, Entry{
			EntryID:     item.EntryID,
			Title:       item.Title,
			Body:        item.Body,
			PublishedAt: publishedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

func (s *Service) Delete(ctx context.Context, entryID string) error {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return newError(ErrorCodeValidation, "entry id is required", nil)
	}

	if _, err := s.repo.GetEntry(ctx, entryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "entry not found", err)
		}
		return newError(ErrorCodeInternal, "failed to load entry", err)
	}

	if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete entry", err)
	}
	return nil
}
