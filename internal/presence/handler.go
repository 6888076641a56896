package presence

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"visitor-tracker-backend/internal/enrich"
	"visitor-tracker-backend/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader websocket.Upgrader

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Handler is the glue between HTTP and the tenant actors: it upgrades
// sockets, hands command envelopes to the right actor and runs pings through
// enrichment first.
type Handler struct {
	router   *Router
	enricher enrich.Enricher
}

func NewHandler(router *Router, enricher enrich.Enricher) *Handler {
	return &Handler{
		router:   router,
		enricher: enricher,
	}
}

func (h *Handler) Router() *Router {
	return h.router
}

// Join upgrades the request and attaches the socket to the tenant's actor.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, actor *Actor, role model.ConnectionRole, visitorID string) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}

	meta := model.ConnectionMetaItem{
		TenantID:    actor.TenantID(),
		ConnID:      uuid.NewString(),
		Role:        role,
		VisitorID:   visitorID,
		ConnectedAt: actor.now().Unix(),
	}
	c := newConn(ws, meta)

	if err := actor.Attach(r.Context(), c); err != nil {
		ws.Close()
		return fmt.Errorf("attach connection: %w", err)
	}

	go c.keepAlive()
	go c.writeLoop()
	go c.readLoop(actor)

	log.Printf("Connection %s joined tenant %s as %s", c.ID, meta.TenantID, role)
	return nil
}

// Ingest applies one command envelope to the tenant's actor.
func (h *Handler) Ingest(ctx context.Context, actor *Actor, cmd CommandEnvelope, remoteIP string) error {
	switch cmd.Type {
	case MsgNewVisitor:
		if cmd.Visitor == nil || cmd.Visitor.ID == "" {
			return fmt.Errorf("%w: visitor id is required", ErrBadCommand)
		}

		delta := PingDelta{
			VisitorID: cmd.Visitor.ID,
			Company:   cmd.Visitor.Company,
			Location:  cmd.Visitor.Location,
			LastRole:  cmd.Visitor.LastRole,
			Website:   cmd.Website,
			Event:     cmd.Event,
		}
		h.enrichDelta(ctx, &delta, remoteIP)

		return actor.ApplyPing(ctx, delta)

	case MsgSendVideoInvite:
		if cmd.VisitorID == "" {
			return fmt.Errorf("%w: visitor id is required", ErrBadCommand)
		}
		if cmd.GuestURL == "" {
			return fmt.Errorf("%w: guest url is required", ErrBadCommand)
		}
		return actor.SendInvite(ctx, cmd.VisitorID, cmd.GuestURL)

	default:
		return fmt.Errorf("%w: unknown command type %q", ErrBadCommand, cmd.Type)
	}
}

func (h *Handler) enrichDelta(ctx context.Context, delta *PingDelta, remoteIP string) {
	if delta.Company != "" || h.enricher == nil || remoteIP == "" {
		return
	}

	company, ok, err := h.enricher.Lookup(ctx, remoteIP)
	if err != nil {
		log.Printf("Enrichment lookup failed for %s: %v", remoteIP, err)
		return
	}
	if !ok {
		return
	}

	delta.Company = company.Name
	if delta.Location == "" {
		delta.Location = company.Location
	}
}
