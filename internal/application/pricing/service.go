package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchConcurrency = 8
	defaultMaxBatchSize     = 200
	internalErrorCode       = "INTERNAL_ERROR"
)

// Resolver is the engine contract the service depends on
type Resolver interface {
	Resolve(ctx context.Context, product pricing.ProductPricingContext, customer pricing.CustomerPricingContext, quantity int, onDate time.Time) (*pricing.PriceResolution, error)
}

// ServiceOption configures a PriceService
type ServiceOption func(*PriceService)

// WithLogger sets the fallback logger used when the request context carries none
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *PriceService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *telemetry.PricingMetrics) ServiceOption {
	return func(s *PriceService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBatchLimits bounds batch fan-out and batch size
func WithBatchLimits(concurrency, maxSize int) ServiceOption {
	return func(s *PriceService) {
		if concurrency > 0 {
			s.batchConcurrency = concurrency
		}
		if maxSize > 0 {
			s.maxBatchSize = maxSize
		}
	}
}

// WithClock overrides the source of "today" for requests without a date
func WithClock(now func() time.Time) ServiceOption {
	return func(s *PriceService) {
		if now != nil {
			s.now = now
		}
	}
}

// PriceService is the caller-facing price resolution API. It loads the
// product and customer contexts and delegates to the engine.
type PriceService struct {
	catalog   pricing.CatalogProvider
	customers pricing.CustomerDirectory
	engine    Resolver

	logger           *zap.Logger
	metrics          *telemetry.PricingMetrics
	batchConcurrency int
	maxBatchSize     int
	now              func() time.Time
}

// NewPriceService creates a new PriceService
func NewPriceService(
	catalog pricing.CatalogProvider,
	customers pricing.CustomerDirectory,
	engine Resolver,
	opts ...ServiceOption,
) *PriceService {
	s := &PriceService{
		catalog:          catalog,
		customers:        customers,
		engine:           engine,
		logger:           zap.NewNop(),
		metrics:          telemetry.NewNoopPricingMetrics(),
		batchConcurrency: defaultBatchConcurrency,
		maxBatchSize:     defaultMaxBatchSize,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the price customerID pays for quantity units of productID on date
func (s *PriceService) Resolve(ctx context.Context, productID, customerID uuid.UUID, quantity int, date time.Time) (*pricing.PriceResolution, error) {
	return s.resolve(ctx, ResolveRequest{
		ProductID:  productID,
		CustomerID: customerID,
		Quantity:   quantity,
		Date:       date,
	})
}

func (s *PriceService) resolve(ctx context.Context, req ResolveRequest) (*pricing.PriceResolution, error) {
	start := time.Now()
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	onDate := pricing.NormalizeDate(req.Date)

	ctx, span := telemetry.StartServiceSpan(ctx, "price", "resolve",
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
		telemetry.SpanAttrOnDate, onDate.Format(time.DateOnly),
	)
	defer span.End()

	log := s.loggerFor(ctx).With(
		zap.String("product_id", req.ProductID.String()),
		zap.String("customer_id", req.CustomerID.String()),
		zap.Int("quantity", req.Quantity),
	)

	res, err := s.doResolve(ctx, req, onDate)
	if err != nil {
		code := errorCode(err)
		telemetry.RecordError(span, err)
		s.metrics.RecordFailure(ctx, code, time.Since(start))
		if code == shared.CodeCollaboratorUnavailable || code == shared.CodeRuleDataInconsistent || code == internalErrorCode {
			log.Error("Price resolution failed", zap.String("code", code), zap.Error(err))
		} else {
			log.Debug("Price resolution rejected", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	ruleType := ""
	if rt := res.AppliedRuleType(); rt != nil {
		ruleType = string(*rt)
		telemetry.SetAttributes(span,
			telemetry.SpanAttrRuleID, res.AppliedRuleID().String(),
			telemetry.SpanAttrRuleType, ruleType,
		)
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrFinalPrice, res.FinalPrice().Amount().String(),
		telemetry.SpanAttrMarginWarn, res.MarginWarning(),
	)
	if skipped := res.SkippedRuleIDs(); len(skipped) > 0 {
		telemetry.AddEvent(span, "rules_skipped", "count", len(skipped))
	}
	s.metrics.RecordResolution(ctx, ruleType, res.MarginWarning(), len(res.SkippedRuleIDs()), time.Since(start))

	if res.MarginWarning() {
		log.Warn("Resolved price below minimum margin",
			zap.String("final_price", res.FinalPrice().String()),
			zap.String("rule_type", ruleType),
		)
	}
	return res, nil
}

func (s *PriceService) doResolve(ctx context.Context, req ResolveRequest, onDate time.Time) (*pricing.PriceResolution, error) {
	if req.ProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "product_id is required")
	}
	if req.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "customer_id is required")
	}
	if req.Quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be at least 1, got %d", req.Quantity))
	}

	product, err := s.catalog.GetProductContext(ctx, req.ProductID)
	if err != nil {
		return nil, lookupError("product", req.ProductID, err)
	}
	customer, err := s.customers.GetCustomerContext(ctx, req.CustomerID)
	if err != nil {
		return nil, lookupError("customer", req.CustomerID, err)
	}

	return s.engine.Resolve(ctx, product, customer, req.Quantity, onDate)
}

// ResolveBatch resolves independent requests concurrently. A failed item is
// reported in its slot and never cancels its siblings. Only an oversized or
// empty batch fails the call as a whole.
func (s *PriceService) ResolveBatch(ctx context.Context, reqs []ResolveRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "batch must contain at least one request")
	}
	if len(reqs) > s.maxBatchSize {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("batch of %d exceeds the maximum of %d requests", len(reqs), s.maxBatchSize))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "price", "resolve_batch",
		telemetry.SpanAttrBatchSize, len(reqs))
	defer span.End()

	items := make([]BatchItemResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.resolve(ctx, req)
			items[i] = BatchItemResult{Index: i, Request: req, Resolution: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Items: items}
	for _, item := range items {
		if item.Failed() {
			result.Failed++
		}
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchFailed, result.Failed)

	s.loggerFor(ctx).Info("Batch price resolution completed",
		zap.Int("batch_size", len(reqs)),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// loggerFor prefers the request-scoped logger and falls back to the service logger
func (s *PriceService) loggerFor(ctx context.Context) *zap.Logger {
	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		return logger.L(ctx)
	}
	return s.logger
}

// lookupError maps a collaborator failure onto the resolution error codes
func lookupError(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.WrapDomainError(shared.CodeNotFound, fmt.Sprintf("%s %s not found", kind, id), err)
	}
	return shared.WrapDomainError(shared.CodeCollaboratorUnavailable, fmt.Sprintf("%s lookup failed", kind), err)
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return internalErrorCode
}
