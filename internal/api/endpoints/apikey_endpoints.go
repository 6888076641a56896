package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/dto"
	apikeysvc "visitor-tracker-backend/internal/service/apikey"
	authsvc "visitor-tracker-backend/internal/service/auth"
)

type APIKeyEndpoints interface {
	Keys(http.ResponseWriter, *http.Request) error
}

type apiKeyEndpoints struct {
	keys *apikeysvc.Service
	auth *authsvc.Service
}

func NewAPIKeyEndpoints(db *database.Database) APIKeyEndpoints {
	return &apiKeyEndpoints{
		keys: apikeysvc.New(db),
		auth: authsvc.New(db),
	}
}

// Keys serves the key collection: GET lists, POST issues, DELETE revokes.
func (h *apiKeyEndpoints) Keys(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleList,
		http.MethodPost:   h.handleIssue,
		http.MethodDelete: h.handleDelete,
	})
}

func (h *apiKeyEndpoints) handleIssue(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.auth.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("issue api key: %w", err),
		}
	}

	key, err := h.keys.Issue(r.Context(), identity.TenantID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.CreateAPIKeyResponse{Key: toAPIKeyResponse(key)})
}

func (h *apiKeyEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.auth.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("list api keys: %w", err),
		}
	}

	keys, err := h.keys.List(r.Context(), identity.TenantID)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListAPIKeysResponse{Keys: make([]dto.TenantAPIKey, 0, len(keys))}
	for _, key := range keys {
		resp.Keys = append(resp.Keys, toAPIKeyResponse(key))
	}

	return WriteJSON(w, http.StatusOK, resp)
}

func (h *apiKeyEndpoints) handleDelete(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.auth.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("delete api key: %w", err),
		}
	}

	keyID := r.URL.Query().Get("keyId")
	if keyID == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing keyId query parameter",
			ErrorLog:   fmt.Errorf("delete api key: missing keyId"),
		}
	}

	if err := h.keys.Delete(r.Context(), identity.TenantID, keyID); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "API key deleted"})
}

func (h *apiKeyEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*apikeysvc.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("apikey service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case apikeysvc.ErrorCodeValidation:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case apikeysvc.ErrorCodeUnauthorized:
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case apikeysvc.ErrorCodeNotFound:
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

func toAPIKeyResponse(key apikeysvc.Key) dto.TenantAPIKey {
	return dto.TenantAPIKey{
		KeyID:     key.KeyID,
		APIKey:    key.APIKey,
		CreatedAt: key.CreatedAt.UTC().Format(time.RFC3339),
	}
}
