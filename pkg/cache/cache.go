// Package cache stores generate-shift responses. Generation is deterministic,
// so an identical roster and engine budget always yields the same table.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
)

var ErrMiss = errors.New("cache miss")

// KeyPrefix namespaces generation results in Redis
const KeyPrefix = "shift:generate:"

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis
type RedisCache struct {
	c *redis.Client
}

// NewRedis connects to Redis
func NewRedis(addr, password string, db int) *RedisCache {
	return &RedisCache{c: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewRedisCache wraps an existing client
func NewRedisCache(c *redis.Client) *RedisCache { return &RedisCache{c: c} }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// Ping tests the Redis connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.c.Close()
}

// Key derives the cache key of a generation from the roster and the engine
// budget. encoding/json sorts map keys, so equal rosters hash equally.
func Key(r *models.Roster, opts scheduler.Options) (string, error) {
	data, err := json.Marshal(struct {
		Roster *models.Roster    `json:"roster"`
		Opts   scheduler.Options `json:"opts"`
	}{r, opts})
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}
