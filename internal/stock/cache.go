package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "stock:onhand:version"

// Cache wraps Redis based caching for on-hand rows with versioning controls.
// Posting a movement bumps the version, so cached rows are keyed by the
// movement set's version rather than mutated in place.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchRow loads a cached on-hand row or populates it using the loader.
func (c *Cache) FetchRow(ctx context.Context, sku string, loader func(context.Context) (OnHandRow, error)) (OnHandRow, error) {
	if loader == nil {
		return OnHandRow{}, errors.New("stock: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return OnHandRow{}, err
	}
	key := fmt.Sprintf("stock:onhand:%s:%d", sku, ver)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var row OnHandRow
		if err := json.Unmarshal(payload, &row); err == nil {
			return row, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return OnHandRow{}, err
	}
	row, err := loader(ctx)
	if err != nil {
		return OnHandRow{}, err
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return OnHandRow{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return OnHandRow{}, err
	}
	return row, nil
}

// Bump invalidates cached rows by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
