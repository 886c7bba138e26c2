package cache

import (
	"fmt"

	"github.com/erp/pricing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ContextCacheFactory creates context caches based on configuration
type ContextCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*ContextCacheFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) FactoryOption {
	return func(f *ContextCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the
// in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *ContextCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewContextCacheFactory creates a new factory
func NewContextCacheFactory(cfg config.RedisConfig, opts ...FactoryOption) *ContextCacheFactory {
	f := &ContextCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis cache when Redis is enabled and reachable,
// otherwise an in-memory cache.
func (f *ContextCacheFactory) CreateCache() (ContextCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory pricing context cache")
		return NewInMemoryContextCache(0), nil
	}

	c, err := NewRedisContextCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis pricing context cache", zap.String("addr", f.redisConfig.RedisAddr()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for pricing context cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory pricing context cache", zap.Error(err))
	return NewInMemoryContextCache(0), nil
}
