package presence

import (
	"context"
	"fmt"
	"sync"

	"visitor-tracker-backend/internal/store"
)

// KeyResolver maps a tenant API-key credential to a tenant id. Implemented by
// the apikey service.
type KeyResolver interface {
	ResolveTenant(ctx context.Context, apiKey string) (string, error)
}

// Router maps a tenant credential to exactly one actor. The same credential
// always resolves to the same actor; actors are created lazily on first
// traffic and kept for the life of the process.
type Router struct {
	mu     sync.Mutex
	actors map[string]*Actor
	store  store.Store
	keys   KeyResolver
	cfg    Config
}

func NewRouter(st store.Store, keys KeyResolver, cfg Config) *Router {
	return &Router{
		actors: make(map[string]*Actor),
		store:  st,
		keys:   keys,
		cfg:    cfg,
	}
}

func (rt *Router) Resolve(ctx context.Context, apiKey string) (*Actor, error) {
	tenantID, err := rt.keys.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant key: %w", err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	actor, ok := rt.actors[tenantID]
	if !ok {
		actor = NewActor(tenantID, rt.store, rt.cfg)
		actor.Start()
		rt.actors[tenantID] = actor
	}
	return actor, nil
}
