package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryContextCache implements ContextCache with a process-local map.
// Values are stored JSON-encoded so callers never share memory with the cache.
type InMemoryContextCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	closed    bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryContextCache creates the cache and starts a cleanup goroutine
// that evicts expired entries every cleanupInterval (default one minute).
func NewInMemoryContextCache(cleanupInterval time.Duration) *InMemoryContextCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	c := &InMemoryContextCache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get implements ContextCache
func (c *InMemoryContextCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	closed := c.closed
	c.mu.RUnlock()

	if closed {
		return false, ErrCacheClosed
	}
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements ContextCache
func (c *InMemoryContextCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete implements ContextCache
func (c *InMemoryContextCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryContextCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()

		c.mu.Lock()
		c.closed = true
		c.entries = make(map[string]entry)
		c.mu.Unlock()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (c *InMemoryContextCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryContextCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryContextCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

var _ ContextCache = (*InMemoryContextCache)(nil)
