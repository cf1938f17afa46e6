package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a JSON-over-Redis response cache with the same Get/Set
// shape as the file-backed httputil cache, so registry clients can use
// either interchangeably. It is intended for the serve mode, where
// multiple depvet processes benefit from sharing registry lookups.
//
// Unlike the in-process [Cache], expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to the Redis instance at addr and returns a cache
// whose entries expire after ttl. A ttl of 0 means entries never expire.
// The connection is verified with a ping before returning.
func NewRedisCache(addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get retrieves a cached value by key and unmarshals it into v.
// Returns (false, nil) on a miss.
func (c *RedisCache) Get(key string, v any) (bool, error) {
	data, err := c.client.Get(context.Background(), c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// Set stores a value under key, refreshing its TTL.
func (c *RedisCache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(context.Background(), c.prefix+key, data, c.ttl).Err()
}

// Namespace returns a view of the cache that prefixes all keys.
func (c *RedisCache) Namespace(prefix string) *RedisCache {
	return &RedisCache{
		client: c.client,
		ttl:    c.ttl,
		prefix: c.prefix + prefix,
	}
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
