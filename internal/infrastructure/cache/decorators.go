package cache

import (
	"context"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DecoratorOption configures a caching decorator
type DecoratorOption func(*decoratorConfig)

type decoratorConfig struct {
	ttl      time.Duration
	logger   *zap.Logger
	recorder LookupRecorder
}

// WithTTL sets how long looked-up contexts stay cached.
// A TTL <= 0 disables caching and every lookup goes to the wrapped source.
func WithTTL(ttl time.Duration) DecoratorOption {
	return func(c *decoratorConfig) {
		c.ttl = ttl
	}
}

// WithLogger sets the logger used to report cache failures
func WithLogger(logger *zap.Logger) DecoratorOption {
	return func(c *decoratorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLookupRecorder sets the hit/miss recorder
func WithLookupRecorder(r LookupRecorder) DecoratorOption {
	return func(c *decoratorConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

func newDecoratorConfig(opts []DecoratorOption) decoratorConfig {
	cfg := decoratorConfig{
		ttl:      5 * time.Minute,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c decoratorConfig) enabled() bool {
	return c.ttl > 0
}

// CachedCatalogProvider decorates a CatalogProvider with a ContextCache.
// Cache failures degrade to a direct lookup; lookup errors are never cached.
type CachedCatalogProvider struct {
	next  pricing.CatalogProvider
	cache ContextCache
	cfg   decoratorConfig
}

// NewCachedCatalogProvider wraps next with cache
func NewCachedCatalogProvider(next pricing.CatalogProvider, cache ContextCache, opts ...DecoratorOption) *CachedCatalogProvider {
	return &CachedCatalogProvider{next: next, cache: cache, cfg: newDecoratorConfig(opts)}
}

// ProductKey returns the cache key of a product context
func ProductKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// GetProductContext implements pricing.CatalogProvider
func (p *CachedCatalogProvider) GetProductContext(ctx context.Context, productID uuid.UUID) (pricing.ProductPricingContext, error) {
	if !p.cfg.enabled() {
		return p.next.GetProductContext(ctx, productID)
	}
	key := ProductKey(productID)

	var cached pricing.ProductPricingContext
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.cfg.logger.Warn("Product context cache read failed", zap.String("key", key), zap.Error(err))
	}
	p.cfg.recorder.RecordCacheLookup(ctx, "product", hit)
	if hit {
		return cached, nil
	}

	product, err := p.next.GetProductContext(ctx, productID)
	if err != nil {
		return pricing.ProductPricingContext{}, err
	}
	if err := p.cache.Set(ctx, key, product, p.cfg.ttl); err != nil {
		p.cfg.logger.Warn("Product context cache write failed", zap.String("key", key), zap.Error(err))
	}
	return product, nil
}

// Invalidate drops cached product contexts
func (p *CachedCatalogProvider) Invalidate(ctx context.Context, productIDs ...uuid.UUID) error {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = ProductKey(id)
	}
	return p.cache.Delete(ctx, keys...)
}

// CachedCustomerDirectory decorates a CustomerDirectory with a ContextCache.
type CachedCustomerDirectory struct {
	next  pricing.CustomerDirectory
	cache ContextCache
	cfg   decoratorConfig
}

// NewCachedCustomerDirectory wraps next with cache
func NewCachedCustomerDirectory(next pricing.CustomerDirectory, cache ContextCache, opts ...DecoratorOption) *CachedCustomerDirectory {
	return &CachedCustomerDirectory{next: next, cache: cache, cfg: newDecoratorConfig(opts)}
}

// CustomerKey returns the cache key of a customer context
func CustomerKey(id uuid.UUID) string {
	return "customer:" + id.String()
}

// GetCustomerContext implements pricing.CustomerDirectory
func (d *CachedCustomerDirectory) GetCustomerContext(ctx context.Context, customerID uuid.UUID) (pricing.CustomerPricingContext, error) {
	if !d.cfg.enabled() {
		return d.next.GetCustomerContext(ctx, customerID)
	}
	key := CustomerKey(customerID)

	var cached pricing.CustomerPricingContext
	hit, err := d.cache.Get(ctx, key, &cached)
	if err != nil {
		d.cfg.logger.Warn("Customer context cache read failed", zap.String("key", key), zap.Error(err))
	}
	d.cfg.recorder.RecordCacheLookup(ctx, "customer", hit)
	if hit {
		return cached, nil
	}

	customer, err := d.next.GetCustomerContext(ctx, customerID)
	if err != nil {
		return pricing.CustomerPricingContext{}, err
	}
	if err := d.cache.Set(ctx, key, customer, d.cfg.ttl); err != nil {
		d.cfg.logger.Warn("Customer context cache write failed", zap.String("key", key), zap.Error(err))
	}
	return customer, nil
}

var (
	_ pricing.CatalogProvider   = (*CachedCatalogProvider)(nil)
	_ pricing.CustomerDirectory = (*CachedCustomerDirectory)(nil)
)
