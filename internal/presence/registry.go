package presence

import (
	"log"

	"visitor-tracker-backend/internal/model"
)

// Registry holds the live sockets for one tenant. It is owned and mutated
// exclusively by the tenant's actor goroutine, so it needs no locking.
//
// byVisitor is a fast-path cache over the durable connection metadata. A
// unicast that misses it falls back to scanning every connection's Meta, which
// tolerates cache entries lost across a process restart.
type Registry struct {
	conns     map[string]*Conn
	byVisitor map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Conn),
		byVisitor: make(map[string]string),
	}
}

func (r *Registry) Add(c *Conn) {
	r.conns[c.ID] = c
	if c.Meta.Role == model.RoleVisitor && c.Meta.VisitorID != "" {
		r.byVisitor[c.Meta.VisitorID] = c.ID
	}
	incConnections()
}

func (r *Registry) Remove(c *Conn) {
	if _, ok := r.conns[c.ID]; !ok {
		return
	}
	delete(r.conns, c.ID)
	if c.Meta.Role == model.RoleVisitor && r.byVisitor[c.Meta.VisitorID] == c.ID {
		delete(r.byVisitor, c.Meta.VisitorID)
	}
	decConnections()
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// HasVisitorConn reports whether any live connection belongs to the visitor,
// checking the cache first and the durable metadata second.
func (r *Registry) HasVisitorConn(visitorID string) bool {
	if _, ok := r.byVisitor[visitorID]; ok {
		return true
	}
	for _, c := range r.conns {
		if c.Meta.Role == model.RoleVisitor && c.Meta.VisitorID == visitorID {
			return true
		}
	}
	return false
}

// Broadcast delivers a payload to every live connection. A connection that
// cannot accept the message is logged and skipped; delivery to the remaining
// recipients always continues.
func (r *Registry) Broadcast(payload interface{}) {
	delivered := 0
	for _, c := range r.conns {
		if c.enqueue(payload) {
			delivered++
		} else {
			incDropped()
			log.Printf("Dropped broadcast to connection %s", c.ID)
		}
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
}

// BroadcastDashboards delivers a payload to dashboard-role connections only.
func (r *Registry) BroadcastDashboards(payload interface{}) {
	delivered := 0
	for _, c := range r.conns {
		if c.Meta.Role != model.RoleDashboard {
			continue
		}
		if c.enqueue(payload) {
			delivered++
		} else {
			incDropped()
			log.Printf("Dropped dashboard broadcast to connection %s", c.ID)
		}
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
}

// UnicastVisitor delivers a payload to the visitor's connection. The direct
// map is tried first; on miss every connection's durable metadata is scanned,
// the fallback counter is bumped, and the cache is repaired on a hit.
func (r *Registry) UnicastVisitor(visitorID string, payload interface{}) bool {
	if connID, ok := r.byVisitor[visitorID]; ok {
		if c, ok := r.conns[connID]; ok {
			if c.enqueue(payload) {
				addDelivered(1)
				return true
			}
			incDropped()
			log.Printf("Dropped unicast to connection %s", c.ID)
			return false
		}
		// Stale cache entry; fall through to the scan.
		delete(r.byVisitor, visitorID)
	}

	for _, c := range r.conns {
		if c.Meta.Role != model.RoleVisitor || c.Meta.VisitorID != visitorID {
			continue
		}
		incUnicastFallback()
		log.Printf("Unicast fallback scan hit for visitor %s on connection %s", visitorID, c.ID)
		r.byVisitor[visitorID] = c.ID
		if c.enqueue(payload) {
			addDelivered(1)
			return true
		}
		incDropped()
		return false
	}
	return false
}
