// Package enrich resolves a visitor IP to company data. Provider integration
// lives behind the Enricher interface; this package only supplies the
// read-through cache and a static provider for development.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"visitor-tracker-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

type Company struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Enricher looks up company data for an IP. The boolean reports whether the
// IP resolved to a known company.
type Enricher interface {
	Lookup(ctx context.Context, ip string) (Company, bool, error)
}

// Static serves a fixed table. Used in development and tests.
type Static struct {
	entries map[string]Company
}

func NewStatic(entries map[string]Company) *Static {
	if entries == nil {
		entries = make(map[string]Company)
	}
	return &Static{entries: entries}
}

func (s *Static) Lookup(ctx context.Context, ip string) (Company, bool, error) {
	company, ok := s.entries[ip]
	return company, ok, nil
}

const cacheTTL = 24 * time.Hour

// Cached is a Redis read-through cache in front of another Enricher, so a
// provider is consulted at most once per IP per TTL.
type Cached struct {
	client *redis.Client
	next   Enricher
}

func NewCached(client *redis.Client, next Enricher) *Cached {
	return &Cached{
		client: client,
		next:   next,
	}
}

func NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     env.Get(env.EnrichRedisURL),
		Password: env.Get(env.EnrichRedisPass),
		DB:       0,
	})
}

func cacheKey(ip string) string {
	return "enrich:" + ip
}

func (c *Cached) Lookup(ctx context.Context, ip string) (Company, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(ip)).Result()
	if err == nil {
		if val == "" {
			// Negative cache entry.
			return Company{}, false, nil
		}
		var company Company
		if jsonErr := json.Unmarshal([]byte(val), &company); jsonErr == nil {
			return company, true, nil
		}
		// Corrupt entry; fall through to the provider.
	} else if err != redis.Nil {
		return Company{}, false, err
	}

	company, ok, err := c.next.Lookup(ctx, ip)
	if err != nil {
		return Company{}, false, err
	}

	cached := ""
	if ok {
		data, jsonErr := json.Marshal(company)
		if jsonErr == nil {
			cached = string(data)
		}
	}
	if setErr := c.client.Set(ctx, cacheKey(ip), cached, cacheTTL).Err(); setErr != nil {
		// Cache write failure only costs a future provider call.
		return company, ok, nil
	}

	return company, ok, nil
}
