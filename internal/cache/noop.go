package cache

import (
	"context"
	"fmt"
	"time"
)

var _ Cache = Noop{}

// Noop is the stand-in driver when no cache is configured. Every fetch
// misses and every store succeeds silently.
type Noop struct{}

func (Noop) StoreDocument(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	return nil
}

func (Noop) FetchDocument(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("cache miss")
}

func (Noop) Ping(ctx context.Context) error { return nil }

func (Noop) Close() {}
