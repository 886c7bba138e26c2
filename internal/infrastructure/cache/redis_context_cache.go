package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces pricing context keys in a shared Redis.
const DefaultKeyPrefix = "pricing:ctx:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisContextCache implements ContextCache using Redis
type RedisContextCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// NewRedisContextCache connects to Redis and verifies the connection
func NewRedisContextCache(cfg RedisConfig) (*RedisContextCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisContextCache{
		client:     client,
		ownsClient: true,
		keyPrefix:  DefaultKeyPrefix,
	}, nil
}

// NewRedisContextCacheWithClient creates a cache over an existing client.
// The caller keeps ownership of the client.
func NewRedisContextCacheWithClient(client *redis.Client, keyPrefix string) *RedisContextCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisContextCache{client: client, keyPrefix: keyPrefix}
}

// Get implements ContextCache
func (c *RedisContextCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements ContextCache
func (c *RedisContextCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements ContextCache
func (c *RedisContextCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.keyPrefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the client if this cache created it
func (c *RedisContextCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

var _ ContextCache = (*RedisContextCache)(nil)
