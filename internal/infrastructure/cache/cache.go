// Package cache provides short-lived caching of product and customer pricing
// contexts in front of the catalog and customer adapters.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheClosed is returned by operations on a closed cache.
var ErrCacheClosed = errors.New("cache: closed")

// ContextCache stores JSON-encoded values under string keys with a TTL.
type ContextCache interface {
	// Get decodes the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// LookupRecorder receives cache hit/miss observations.
type LookupRecorder interface {
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(context.Context, string, bool) {}
