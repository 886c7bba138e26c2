package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testDate    = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	productID   = uuid.MustParse("33333333-0000-0000-0000-000000000001")
	customerID  = uuid.MustParse("11111111-0000-0000-0000-000000000001")
	groupID     = uuid.MustParse("22222222-0000-0000-0000-000000000001")
	ruleID      = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	missingID   = uuid.MustParse("99999999-0000-0000-0000-000000000001")
	errDatabase = errors.New("connection refused")
)

// MockCatalogProvider is a mock implementation of pricing.CatalogProvider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) GetProductContext(ctx context.Context, id uuid.UUID) (pricing.ProductPricingContext, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(pricing.ProductPricingContext), args.Error(1)
}

// MockCustomerDirectory is a mock implementation of pricing.CustomerDirectory
type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) GetCustomerContext(ctx context.Context, id uuid.UUID) (pricing.CustomerPricingContext, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(pricing.CustomerPricingContext), args.Error(1)
}

func eur(s string) valueobject.Money {
	return valueobject.MustMoney(s, valueobject.EUR)
}

func testProduct(list, cost string) pricing.ProductPricingContext {
	p := pricing.ProductPricingContext{ProductID: productID, ListPrice: eur(list)}
	if cost != "" {
		c := eur(cost)
		p.CostPrice = &c
	}
	return p
}

func testCustomer() pricing.CustomerPricingContext {
	g := groupID
	return pricing.CustomerPricingContext{CustomerID: customerID, CustomerGroupID: &g}
}

func fixedCustomerRule(value string) pricing.PricingRule {
	c, p := customerID, productID
	return pricing.PricingRule{
		ID:                ruleID,
		RuleType:          pricing.RuleTypeCustomerProduct,
		SubjectCustomerID: &c,
		TargetType:        pricing.TargetTypeProduct,
		TargetID:          &p,
		PriceType:         pricing.PriceTypeFixed,
		PriceValue:        decimal.RequireFromString(value),
		Active:            true,
	}
}

func setupService(t *testing.T, rules ...pricing.PricingRule) (*PriceService, *MockCatalogProvider, *MockCustomerDirectory) {
	t.Helper()
	catalog := new(MockCatalogProvider)
	directory := new(MockCustomerDirectory)
	engine := pricing.NewEngine(pricing.NewMemoryRuleStore(rules...))
	svc := NewPriceService(catalog, directory, engine)
	return svc, catalog, directory
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T", err)
	assert.Equal(t, code, de.Code)
}

func TestPriceService_Resolve(t *testing.T) {
	t.Run("applies customer rule", func(t *testing.T) {
		svc, catalog, directory := setupService(t, fixedCustomerRule("10.00"))
		catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", "8.00"), nil)
		directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

		res, err := svc.Resolve(context.Background(), productID, customerID, 5, testDate)

		require.NoError(t, err)
		assert.True(t, res.FinalPrice().Equals(eur("10.00")))
		assert.Equal(t, ruleID, *res.AppliedRuleID())
		assert.False(t, res.MarginWarning())
		catalog.AssertExpectations(t)
		directory.AssertExpectations(t)
	})

	t.Run("falls back to list price", func(t *testing.T) {
		svc, catalog, directory := setupService(t)
		catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
		directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

		res, err := svc.Resolve(context.Background(), productID, customerID, 1, testDate)

		require.NoError(t, err)
		assert.True(t, res.FinalPrice().Equals(eur("12.00")))
		assert.Nil(t, res.AppliedRuleID())
		assert.False(t, res.IsDiscounted())
	})

	t.Run("zero date resolves for today", func(t *testing.T) {
		rule := fixedCustomerRule("9.00")
		from, to := testDate, testDate
		rule.ValidFrom, rule.ValidTo = &from, &to

		catalog := new(MockCatalogProvider)
		directory := new(MockCustomerDirectory)
		svc := NewPriceService(catalog, directory, pricing.NewEngine(pricing.NewMemoryRuleStore(rule)),
			WithClock(func() time.Time { return testDate.Add(15 * time.Hour) }))
		catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
		directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

		res, err := svc.Resolve(context.Background(), productID, customerID, 1, time.Time{})

		require.NoError(t, err)
		assert.True(t, res.FinalPrice().Equals(eur("9.00")))
		assert.Equal(t, testDate, res.ResolvedAt())
	})
}

func TestPriceService_Resolve_Errors(t *testing.T) {
	t.Run("invalid quantity skips lookups", func(t *testing.T) {
		svc, catalog, directory := setupService(t)

		_, err := svc.Resolve(context.Background(), productID, customerID, 0, testDate)

		requireCode(t, err, shared.CodeInvalidQuantity)
		catalog.AssertNotCalled(t, "GetProductContext", mock.Anything, mock.Anything)
		directory.AssertNotCalled(t, "GetCustomerContext", mock.Anything, mock.Anything)
	})

	t.Run("missing ids", func(t *testing.T) {
		svc, _, _ := setupService(t)

		_, err := svc.Resolve(context.Background(), uuid.Nil, customerID, 1, testDate)
		requireCode(t, err, shared.CodeInvalidInput)

		_, err = svc.Resolve(context.Background(), productID, uuid.Nil, 1, testDate)
		requireCode(t, err, shared.CodeInvalidInput)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, catalog, directory := setupService(t)
		catalog.On("GetProductContext", mock.Anything, missingID).
			Return(pricing.ProductPricingContext{}, shared.ErrNotFound)

		_, err := svc.Resolve(context.Background(), missingID, customerID, 1, testDate)

		requireCode(t, err, shared.CodeNotFound)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		directory.AssertNotCalled(t, "GetCustomerContext", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, catalog, directory := setupService(t)
		catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
		directory.On("GetCustomerContext", mock.Anything, missingID).
			Return(pricing.CustomerPricingContext{}, shared.NewDomainError(shared.CodeNotFound, "customer gone"))

		_, err := svc.Resolve(context.Background(), productID, missingID, 1, testDate)

		requireCode(t, err, shared.CodeNotFound)
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		svc, catalog, _ := setupService(t)
		catalog.On("GetProductContext", mock.Anything, productID).
			Return(pricing.ProductPricingContext{}, errDatabase)

		_, err := svc.Resolve(context.Background(), productID, customerID, 1, testDate)

		requireCode(t, err, shared.CodeCollaboratorUnavailable)
		assert.ErrorIs(t, err, errDatabase)
	})

	t.Run("directory unavailable", func(t *testing.T) {
		svc, catalog, directory := setupService(t)
		catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
		directory.On("GetCustomerContext", mock.Anything, customerID).
			Return(pricing.CustomerPricingContext{}, errDatabase)

		_, err := svc.Resolve(context.Background(), productID, customerID, 1, testDate)

		requireCode(t, err, shared.CodeCollaboratorUnavailable)
	})

	t.Run("product without list price", func(t *testing.T) {
		svc, catalog, directory := setupService(t)
		catalog.On("GetProductContext", mock.Anything, productID).
			Return(pricing.ProductPricingContext{ProductID: productID}, nil)
		directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

		_, err := svc.Resolve(context.Background(), productID, customerID, 1, testDate)

		requireCode(t, err, shared.CodeInvalidProductState)
	})
}

func TestPriceService_Resolve_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc, catalog, directory := setupService(t, fixedCustomerRule("8.50"))
	catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", "8.00"), nil)
	directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

	ctx, _ := logger.WithRequestID(context.Background(), zap.New(core), "req-42")
	res, err := svc.Resolve(ctx, productID, customerID, 1, testDate)

	require.NoError(t, err)
	assert.True(t, res.MarginWarning())

	entries := logs.FilterMessage("Resolved price below minimum margin").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.Equal(t, productID.String(), entries[0].ContextMap()["product_id"])
}

func TestPriceService_Resolve_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewPricingMetrics(provider.Meter(telemetry.MeterName))
	require.NoError(t, err)

	catalog := new(MockCatalogProvider)
	directory := new(MockCustomerDirectory)
	svc := NewPriceService(catalog, directory,
		pricing.NewEngine(pricing.NewMemoryRuleStore(fixedCustomerRule("10.00"))),
		WithMetrics(metrics))
	catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
	catalog.On("GetProductContext", mock.Anything, missingID).Return(pricing.ProductPricingContext{}, shared.ErrNotFound)
	directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

	_, err = svc.Resolve(context.Background(), productID, customerID, 1, testDate)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), missingID, customerID, 1, testDate)
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["pricing.resolutions"])
	assert.Equal(t, int64(1), sums["pricing.resolution_failures"])
}

func TestPriceService_ResolveBatch(t *testing.T) {
	svc, catalog, directory := setupService(t, fixedCustomerRule("10.00"))
	catalog.On("GetProductContext", mock.Anything, productID).Return(testProduct("12.00", ""), nil)
	catalog.On("GetProductContext", mock.Anything, missingID).Return(pricing.ProductPricingContext{}, shared.ErrNotFound)
	directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)

	reqs := []ResolveRequest{
		{ProductID: productID, CustomerID: customerID, Quantity: 1, Date: testDate},
		{ProductID: missingID, CustomerID: customerID, Quantity: 1, Date: testDate},
		{ProductID: productID, CustomerID: customerID, Quantity: 0, Date: testDate},
		{ProductID: productID, CustomerID: customerID, Quantity: 20, Date: testDate},
	}

	result, err := svc.ResolveBatch(context.Background(), reqs)

	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.Equal(t, 2, result.Failed)

	for i, item := range result.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, reqs[i], item.Request)
	}
	assert.True(t, result.Items[0].Resolution.FinalPrice().Equals(eur("10.00")))
	requireCode(t, result.Items[1].Err, shared.CodeNotFound)
	requireCode(t, result.Items[2].Err, shared.CodeInvalidQuantity)
	assert.Nil(t, result.Items[2].Resolution)
	assert.False(t, result.Items[3].Failed())
}

func TestPriceService_ResolveBatch_Limits(t *testing.T) {
	catalog := new(MockCatalogProvider)
	directory := new(MockCustomerDirectory)
	svc := NewPriceService(catalog, directory, pricing.NewEngine(pricing.NewMemoryRuleStore()),
		WithBatchLimits(2, 3))

	_, err := svc.ResolveBatch(context.Background(), nil)
	requireCode(t, err, shared.CodeInvalidInput)

	_, err = svc.ResolveBatch(context.Background(), make([]ResolveRequest, 4))
	requireCode(t, err, shared.CodeInvalidInput)
}

// gatedCatalog tracks how many lookups run at once
type gatedCatalog struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
}

func (g *gatedCatalog) GetProductContext(_ context.Context, id uuid.UUID) (pricing.ProductPricingContext, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	g.mu.Lock()
	if n > g.peak.Load() {
		g.peak.Store(n)
	}
	g.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return pricing.ProductPricingContext{ProductID: id, ListPrice: eur("1.00")}, nil
}

func TestPriceService_ResolveBatch_BoundsConcurrency(t *testing.T) {
	catalog := &gatedCatalog{}
	directory := new(MockCustomerDirectory)
	directory.On("GetCustomerContext", mock.Anything, customerID).Return(testCustomer(), nil)
	svc := NewPriceService(catalog, directory, pricing.NewEngine(pricing.NewMemoryRuleStore()),
		WithBatchLimits(2, 50))

	reqs := make([]ResolveRequest, 10)
	for i := range reqs {
		reqs[i] = ResolveRequest{ProductID: uuid.New(), CustomerID: customerID, Quantity: 1, Date: testDate}
	}

	result, err := svc.ResolveBatch(context.Background(), reqs)

	require.NoError(t, err)
	assert.Zero(t, result.Failed)
	assert.LessOrEqual(t, catalog.peak.Load(), int32(2))
}
