package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// SchemaDescriber renders the queryable tables as prompt text.
type SchemaDescriber interface {
	Describe(ctx context.Context) (string, error)
}

const schemaCacheKey = "schema"

// CachedSchema memoizes a SchemaDescriber for a fixed TTL.
type CachedSchema struct {
	next  SchemaDescriber
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedSchema(next SchemaDescriber, ttl time.Duration) (*CachedSchema, error) {
	if next == nil {
		return nil, errors.New("schema describer is required")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100,
		MaxCost:     10 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &CachedSchema{next: next, cache: cache, ttl: ttl}, nil
}

func (c *CachedSchema) Describe(ctx context.Context) (string, error) {
	if val, ok := c.cache.Get(schemaCacheKey); ok {
		return val.(string), nil
	}
	schema, err := c.next.Describe(ctx)
	if err != nil {
		return "", err
	}
	c.cache.SetWithTTL(schemaCacheKey, schema, int64(len(schema)), c.ttl)
	c.cache.Wait()
	return schema, nil
}

func (c *CachedSchema) Close() {
	c.cache.Close()
}
