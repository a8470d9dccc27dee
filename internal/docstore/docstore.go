// Package docstore holds the per-(device, site) forecast documents the
// dashboards read. Every run replaces a document wholesale; there is no
// row-level locking and the last writer wins.
package docstore

import (
	"context"
	"fmt"
)

// Store is the document-store contract the sink writes through.
type Store interface {
	// Put replaces the document at key.
	Put(ctx context.Context, key string, doc []byte) error

	// Get retrieves the document at key, ErrNoDocument if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Ping checks store connection
	Ping(ctx context.Context) error

	// Close gracefully closes any connections
	Close()
}

var ErrNoDocument = fmt.Errorf("no document")

// Key is the document key for one (device, site, frequency) forecast record.
func Key(freq, deviceID, siteID string) string {
	return fmt.Sprintf("forecasts:%s:%s:%s", freq, deviceID, siteID)
}
