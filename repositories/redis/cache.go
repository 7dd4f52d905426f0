package redis

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"

	// External Packages
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// Cache is the key-value store for short lived state.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the stored value and whether the key exists.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.IsErr(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.PersistenceErr("cache get "+key, err)
	}
	return v, true, nil
}

// Set stores value under key; a zero ttl keeps it until deleted.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.PersistenceErr("cache set "+key, err)
	}
	return nil
}

// Search returns the values of every key matching a glob pattern.
// Keys expiring between SCAN and MGET are skipped.
func (c *Cache) Search(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.PersistenceErr("cache scan "+pattern, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.PersistenceErr("cache mget "+pattern, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
