package pricing

import (
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
)

// ResolveRequest identifies one price to resolve.
// A zero Date means the current calendar date.
type ResolveRequest struct {
	ProductID  uuid.UUID
	CustomerID uuid.UUID
	Quantity   int
	Date       time.Time
}

// BatchItemResult is the outcome of one request in a batch.
// Exactly one of Resolution and Err is set.
type BatchItemResult struct {
	Index      int
	Request    ResolveRequest
	Resolution *pricing.PriceResolution
	Err        error
}

// Failed reports whether the item could not be resolved
func (r BatchItemResult) Failed() bool {
	return r.Err != nil
}

// BatchResult collects per-item outcomes in request order
type BatchResult struct {
	Items  []BatchItemResult
	Failed int
}
