package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleStore returns candidate rules for one resolution call.
// Implementations must return only active rules whose subject matches the
// customer or the customer's group, whose target matches the product, one
// of its classifications or is global, and whose validity window contains
// onDate. Order is not significant.
type RuleStore interface {
	FindCandidates(ctx context.Context, customer CustomerPricingContext, product ProductPricingContext, onDate time.Time) ([]PricingRule, error)
}

// CatalogProvider loads the pricing view of a product.
// Returns shared.ErrNotFound when the product does not exist.
type CatalogProvider interface {
	GetProductContext(ctx context.Context, productID uuid.UUID) (ProductPricingContext, error)
}

// CustomerDirectory loads a customer and its current group.
// Returns shared.ErrNotFound when the customer does not exist.
type CustomerDirectory interface {
	GetCustomerContext(ctx context.Context, customerID uuid.UUID) (CustomerPricingContext, error)
}
