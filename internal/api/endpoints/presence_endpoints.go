package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"visitor-tracker-backend/internal/model"
	"visitor-tracker-backend/internal/presence"
	"visitor-tracker-backend/utils"
)

type PresenceEndpoints interface {
	Socket(http.ResponseWriter, *http.Request) error
	Command(http.ResponseWriter, *http.Request) error
}

type presenceEndpoints struct {
	handler *presence.Handler
}

func NewPresenceEndpoints(handler *presence.Handler) PresenceEndpoints {
	return &presenceEndpoints{handler: handler}
}

// Socket upgrades the request to a websocket and attaches it to the tenant
// identified by the tenantKey query parameter. Dashboards receive the full
// visitor snapshot on attach; visitor connections identify themselves with
// the visitorId parameter so invites can be delivered to them directly.
func (h *presenceEndpoints) Socket(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSocket,
	})
}

// Command accepts widget beacons (visitor pings) and dashboard actions over
// plain POST for clients that do not hold a websocket open.
func (h *presenceEndpoints) Command(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCommand,
	})
}

func (h *presenceEndpoints) handleSocket(w http.ResponseWriter, r *http.Request) error {
	actor, err := h.resolveActor(r)
	if err != nil {
		return err
	}

	role := model.ConnectionRole(r.URL.Query().Get("role"))
	switch role {
	case model.RoleDashboard, model.RoleVisitor:
	case "":
		role = model.RoleDashboard
	default:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid role parameter",
			ErrorLog:   fmt.Errorf("socket: unknown role %q", role),
		}
	}

	visitorID := r.URL.Query().Get("visitorId")
	if role == model.RoleVisitor && visitorID == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing visitorId for visitor connection",
			ErrorLog:   fmt.Errorf("socket: visitor role without visitorId"),
		}
	}

	if err := h.handler.Join(w, r, actor, role, visitorID); err != nil {
		// The upgrader has already written its own response on handshake
		// failure, so this only surfaces in the logs.
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to establish connection",
			ErrorLog:   fmt.Errorf("socket join: %w", err),
		}
	}

	return nil
}

func (h *presenceEndpoints) handleCommand(w http.ResponseWriter, r *http.Request) error {
	actor, err := h.resolveActor(r)
	if err != nil {
		return err
	}

	var cmd presence.CommandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode command: %w", err),
		}
	}

	if err := h.handler.Ingest(r.Context(), actor, cmd, utils.RealClientIP(r)); err != nil {
		return h.commandError(err)
	}

	return WriteJSON(w, http.StatusAccepted, ApiMessageResponse{Message: "Accepted"})
}

func (h *presenceEndpoints) resolveActor(r *http.Request) (*presence.Actor, error) {
	tenantKey := r.URL.Query().Get("tenantKey")
	if tenantKey == "" {
		return nil, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Missing tenantKey",
			ErrorLog:   fmt.Errorf("presence: missing tenantKey"),
		}
	}

	actor, err := h.handler.Router().Resolve(r.Context(), tenantKey)
	if err != nil {
		return nil, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid tenantKey",
			ErrorLog:   fmt.Errorf("resolve tenant key: %w", err),
		}
	}

	return actor, nil
}

func (h *presenceEndpoints) commandError(err error) error {
	switch {
	case errors.Is(err, presence.ErrBadCommand):
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid command",
			ErrorLog:   err,
		}
	case errors.Is(err, presence.ErrVisitorNotFound):
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Visitor not found",
			ErrorLog:   err,
		}
	case errors.Is(err, presence.ErrNotPersisted):
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "State could not be persisted",
			ErrorLog:   err,
		}
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("presence command: %w", err),
		}
	}
}
