package handler

import (
	"context"
	"fmt"
	"time"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PriceResolver is the application service behind the pricing endpoints
type PriceResolver interface {
	Resolve(ctx context.Context, productID, customerID uuid.UUID, quantity int, date time.Time) (*pricing.PriceResolution, error)
	ResolveBatch(ctx context.Context, reqs []pricingapp.ResolveRequest) (*pricingapp.BatchResult, error)
}

// PricingHandler handles price resolution endpoints
type PricingHandler struct {
	BaseHandler
	service PriceResolver
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service PriceResolver) *PricingHandler {
	return &PricingHandler{service: service}
}

// Resolve handles GET /prices/resolve?product_id=&customer_id=&quantity=&date=
func (h *PricingHandler) Resolve(c *gin.Context) {
	var q dto.ResolvePriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	req, err := toResolveRequest(q.ProductID, q.CustomerID, *q.Quantity, q.Date)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), req.ProductID, req.CustomerID, req.Quantity, req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ResolveBatch handles POST /prices/resolve-batch
func (h *PricingHandler) ResolveBatch(c *gin.Context) {
	var body dto.BatchResolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	reqs := make([]pricingapp.ResolveRequest, len(body.Items))
	for i, item := range body.Items {
		req, err := toResolveRequest(item.ProductID, item.CustomerID, *item.Quantity, item.Date)
		if err != nil {
			h.BadRequest(c, fmt.Sprintf("items[%d]: %v", i, err))
			return
		}
		reqs[i] = req
	}

	result, err := h.service.ResolveBatch(c.Request.Context(), reqs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.BatchResolveResponse{
		Items:  make([]dto.BatchItemResponse, len(result.Items)),
		Total:  len(result.Items),
		Failed: result.Failed,
	}
	for i, item := range result.Items {
		out := dto.BatchItemResponse{Index: item.Index, Success: !item.Failed(), Data: item.Resolution}
		if item.Failed() {
			info, ok := errorInfo(item.Err)
			if !ok {
				info = &dto.ErrorInfo{Code: dto.ErrCodeInternal, Message: "An unexpected error occurred"}
			}
			out.Error = info
		}
		resp.Items[i] = out
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the pricing endpoints under rg
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prices := rg.Group("/prices")
	prices.GET("/resolve", h.Resolve)
	prices.POST("/resolve-batch", h.ResolveBatch)
}

func toResolveRequest(productID, customerID string, quantity int, date string) (pricingapp.ResolveRequest, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return pricingapp.ResolveRequest{}, fmt.Errorf("invalid product_id: %w", err)
	}
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return pricingapp.ResolveRequest{}, fmt.Errorf("invalid customer_id: %w", err)
	}
	onDate, err := dto.ParseDate(date)
	if err != nil {
		return pricingapp.ResolveRequest{}, fmt.Errorf("invalid date: %w", err)
	}
	return pricingapp.ResolveRequest{ProductID: pid, CustomerID: cid, Quantity: quantity, Date: onDate}, nil
}
