package dto

import (
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
)

// DateLayout is the wire format of calendar dates
const DateLayout = time.DateOnly

// ResolvePriceQuery holds the query parameters of a single price lookup
type ResolvePriceQuery struct {
	ProductID  string `form:"product_id" binding:"required,uuid"`
	CustomerID string `form:"customer_id" binding:"required,uuid"`
	Quantity   *int   `form:"quantity" binding:"required"`
	Date       string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// BatchResolveItem is one entry of a batch price lookup
type BatchResolveItem struct {
	ProductID  string `json:"product_id" binding:"required,uuid"`
	CustomerID string `json:"customer_id" binding:"required,uuid"`
	Quantity   *int   `json:"quantity" binding:"required"`
	Date       string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// BatchResolveRequest is the body of a batch price lookup
type BatchResolveRequest struct {
	Items []BatchResolveItem `json:"items" binding:"required,min=1,dive"`
}

// BatchItemResponse reports the outcome of one batch entry
type BatchItemResponse struct {
	Index   int                      `json:"index"`
	Success bool                     `json:"success"`
	Data    *pricing.PriceResolution `json:"data,omitempty"`
	Error   *ErrorInfo               `json:"error,omitempty"`
}

// BatchResolveResponse is the data payload of a batch price lookup
type BatchResolveResponse struct {
	Items  []BatchItemResponse `json:"items"`
	Total  int                 `json:"total"`
	Failed int                 `json:"failed"`
}

// ParseDate parses an optional YYYY-MM-DD date; empty means the zero time
func ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, raw)
}
