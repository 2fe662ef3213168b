package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = fmt.Errorf("key does not exist")

// RedisCache is a struct representing a Redis cache instance.
// It provides an interface to perform CRUD operations on the cache instance.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new instance of RedisCache.
// This function doesn't establish a connection to the Redis server.
// To connect to the server, use the Connect method of the returned RedisCache instance.
func NewRedisCache() *RedisCache {
	return &RedisCache{}
}

// Connect establishes a connection to the Redis backend.
func (r *RedisCache) Connect(redisURL string) error {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return err
	}

	r.client = redis.NewClient(opt)

	_, err = r.client.Ping(context.Background()).Result()
	return err
}

// Disconnect closes the connection to the Redis server.
func (r *RedisCache) Disconnect() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Set sets a key-value pair in the Redis cache with the given expiry.
// It marshals the value into a JSON string before storing it.
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	marshaledValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, marshaledValue, ttl).Err()
}

// Get retrieves the value of a given key from the Redis cache.
// It unmarshals the retrieved JSON string into an interface{}.
// If the key is not found, it returns ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, err
	}

	var result interface{}
	err = json.Unmarshal([]byte(value), &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a single key from the Redis cache.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Clear removes all keys from the currently selected database in the Redis cache.
func (r *RedisCache) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}
