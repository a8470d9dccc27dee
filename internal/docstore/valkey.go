package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ssenyonjo/aircast/internal/metrics"
)

var _ Store = (*Valkey)(nil)

type Valkey struct {
	client *redis.ClusterClient
}

func NewValkey(addrs []string) *Valkey {
	opts := &redis.ClusterOptions{Addrs: addrs}
	client := redis.NewClusterClient(opts)
	client.Options().DialTimeout = 2 * time.Second
	return &Valkey{client}
}

func (v *Valkey) Put(ctx context.Context, key string, doc []byte) error {
	ctx, span := otel.Tracer("aircast-docstore").Start(ctx, "docstore.Put")
	defer span.End()

	span.SetAttributes(
		attribute.String("docstore.driver", "valkey"),
		attribute.String("docstore.key", key),
	)

	ctx, cancel := context.WithTimeout(ctx, time.Millisecond*500)
	defer cancel()

	start := time.Now()
	// forecast documents are durable state, no TTL
	if err := v.client.Set(ctx, key, doc, 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store document: %w", err)
	}
	metrics.CacheWriteLatencySeconds.WithLabelValues("docstore").Observe(time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "")

	return nil
}

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer("aircast-docstore").Start(ctx, "docstore.Get")
	defer span.End()

	span.SetAttributes(
		attribute.String("docstore.driver", "valkey"),
		attribute.String("docstore.key", key),
	)

	ctx, cancel := context.WithTimeout(ctx, time.Millisecond*200)
	defer cancel()

	val, err := v.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.String("docstore.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, ErrNoDocument
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("document fetch: %w", err)
	default:
		span.SetStatus(codes.Ok, "")
		return val, nil
	}
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Close() {
	v.client.Close()
}
