// Package cache fronts the document store on the forecast read path. The
// driver is picked from the environment at startup; with nothing configured
// the Noop driver turns every fetch into a miss.
package cache

import (
	"context"
	"time"
)

// Cache defines the read-path caching for the api.
type Cache interface {
	// StoreDocument caches a forecast document with a TTL
	StoreDocument(ctx context.Context, key string, doc []byte, ttl time.Duration) error

	// FetchDocument retrieves a forecast document from cache
	FetchDocument(ctx context.Context, key string) ([]byte, error)

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Close gracefully closes any connections
	Close()
}
