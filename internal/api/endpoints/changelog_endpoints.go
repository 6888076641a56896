package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/dto"
	changelogsvc "visitor-tracker-backend/internal/service/changelog"
)

type ChangelogEndpoints interface {
	Entries(http.ResponseWriter, *http.Request) error
}

type changelogEndpoints struct {
	service *changelogsvc.Service
}

func NewChangelogEndpoints(db *database.Database) ChangelogEndpoints {
	return &changelogEndpoints{
		service: changelogsvc.New(db),
	}
}

func (h *changelogEndpoints) Entries(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleList,
		http.MethodPost:   h.handlePublish,
		http.MethodDelete: h.handleDelete,
	})
}

func (h *changelogEndpoints) handlePublish(w http.ResponseWriter, r *http.Request) error {
	var req dto.PublishChangelogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode changelog request: %w", err),
		}
	}

	entry, err := h.service.Publish(r.Context(), req.Title, req.Body)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toChangelogResponse(entry))
}

func (h *changelogEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.service.List(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListChangelogResponse{Entries: make([]dto.ChangelogEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toChangelogResponse(entry))
	}

	return WriteJSON(w, http.StatusOK, resp)
}

func (h *changelogEndpoints) handleDelete(w http.ResponseWriter, r *http.Request) error {
	entryID := r.URL.Query().Get("entryId")
	if entryID == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing entryId query parameter",
			ErrorLog:   fmt.Errorf("delete changelog entry: missing entryId"),
		}
	}

	if err := h.service.Delete(r.Context(), entryID); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Changelog entry deleted"})
}

func (h *changelogEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*changelogsvc.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("changelog service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case changelogsvc.ErrorCodeValidation:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case changelogsvc.ErrorCodeNotFound:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   errorLog,
		}
	}
}

func toChangelogResponse(entry changelogsvc.Entry) dto.ChangelogEntryResponse {
	return dto.ChangelogEntryResponse{
		EntryID:     entry.EntryID,
		Title:       entry.Title,
		Body:        entry.Body,
		PublishedAt: entry.PublishedAt.UTC().Format(time.RFC3339),
	}
}
