package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// storeFunc adapts a function to RuleStore
type storeFunc func(ctx context.Context, customer CustomerPricingContext, product ProductPricingContext, onDate time.Time) ([]PricingRule, error)

func (f storeFunc) FindCandidates(ctx context.Context, customer CustomerPricingContext, product ProductPricingContext, onDate time.Time) ([]PricingRule, error) {
	return f(ctx, customer, product, onDate)
}

func newTestEngine(t *testing.T, rules ...PricingRule) *Engine {
	return NewEngine(NewMemoryRuleStore(rules...),
		WithLogger(zaptest.NewLogger(t)),
		WithMarginGuard(true, dec("10")),
	)
}

func TestEngine_Resolve_NoRuleFallsBackToListPrice(t *testing.T) {
	engine := newTestEngine(t)
	product := testProduct("19.999")

	res, err := engine.Resolve(context.Background(), product, testCustomer(), 3, testDate)
	require.NoError(t, err)

	assert.True(t, res.FinalPrice().Equals(product.ListPrice), "list price must pass through unrounded")
	assert.False(t, res.IsDiscounted())
	assert.False(t, res.HasAppliedRule())
	assert.Nil(t, res.AppliedRuleID())
	assert.Nil(t, res.AppliedRuleType())
	assert.Nil(t, res.TierApplied())
	assert.True(t, res.DiscountPercent().IsZero())
	assert.Equal(t, testDate, res.ResolvedAt())
}

func TestEngine_Resolve_MarginWarningExample(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "8.50")
	engine := newTestEngine(t, rule)

	product := testProduct("12.00")
	product.CostPrice = ptr(money("8.00"))

	res, err := engine.Resolve(context.Background(), product, testCustomer(), 1, testDate)
	require.NoError(t, err)

	assert.True(t, res.MarginWarning())
	assert.Equal(t, "8.50", res.FinalPrice().StringFixed(2))
	assert.True(t, res.IsDiscounted())
	require.NotNil(t, res.MarginPercent())
	assert.Equal(t, "5.88", res.MarginPercent().StringFixed(2))
	require.NotNil(t, res.AppliedRuleID())
	assert.Equal(t, lowRuleID, *res.AppliedRuleID())
	assert.Equal(t, RuleTypeCustomerProduct, *res.AppliedRuleType())
	assert.Equal(t, 1, *res.TierApplied())
}

func TestEngine_Resolve_DiscountPercentExample(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerBrand, brandID, PriceTypeDiscountPercent, "12")
	engine := newTestEngine(t, rule)

	res, err := engine.Resolve(context.Background(), testProduct("299.00"), testCustomer(), 1, testDate)
	require.NoError(t, err)

	assert.True(t, dec("263.12").Equal(res.FinalPrice().Amount()), "got %s", res.FinalPrice().Amount())
	assert.Equal(t, "12.00", res.DiscountPercent().StringFixed(2))
	assert.True(t, res.IsDiscounted())
	assert.False(t, res.MarginWarning(), "no cost price means no margin check")
	assert.Nil(t, res.MarginPercent())
}

func TestEngine_Resolve_HierarchyPrecedence(t *testing.T) {
	global := groupGlobalRule(lowRuleID, PriceTypeDiscountPercent, "50")
	global.Priority = 999
	specific := customerRule(highRuleID, RuleTypeCustomerProduct, productID, PriceTypeDiscountPercent, "5")

	engine := newTestEngine(t, global, specific)
	res, err := engine.Resolve(context.Background(), testProduct("100.00"), testCustomer(), 1, testDate)
	require.NoError(t, err)

	assert.Equal(t, highRuleID, *res.AppliedRuleID())
	assert.Equal(t, "95.00", res.FinalPrice().StringFixed(2))
}

func TestEngine_Resolve_PriceTagTieBreakIsDeterministic(t *testing.T) {
	// two tag rules of equal priority; the smaller rule ID must win every time
	a := customerRule(highRuleID, RuleTypeCustomerPriceTag, tagA, PriceTypeDiscountPercent, "20")
	b := customerRule(lowRuleID, RuleTypeCustomerPriceTag, tagB, PriceTypeDiscountPercent, "10")

	engine := newTestEngine(t, a, b)
	for i := 0; i < 10; i++ {
		res, err := engine.Resolve(context.Background(), testProduct("50.00"), testCustomer(), 1, testDate)
		require.NoError(t, err)
		assert.Equal(t, lowRuleID, *res.AppliedRuleID())
		assert.Equal(t, "45.00", res.FinalPrice().StringFixed(2))
	}
}

func TestEngine_Resolve_TierBoundaries(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "10.00")
	rule.Tiers = []PricingTier{{MinQuantity: 10, PriceValue: dec("9.00")}}
	engine := newTestEngine(t, rule)

	res9, err := engine.Resolve(context.Background(), testProduct("12.00"), testCustomer(), 9, testDate)
	require.NoError(t, err)
	res10, err := engine.Resolve(context.Background(), testProduct("12.00"), testCustomer(), 10, testDate)
	require.NoError(t, err)

	assert.Equal(t, 1, *res9.TierApplied())
	assert.Equal(t, "10.00", res9.FinalPrice().StringFixed(2))
	assert.Equal(t, 10, *res10.TierApplied())
	assert.Equal(t, "9.00", res10.FinalPrice().StringFixed(2))
}

func TestEngine_Resolve_DiscountTiers(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerSeries, seriesID, PriceTypeDiscountPercent, "5")
	rule.Tiers = []PricingTier{
		{MinQuantity: 25, PriceValue: dec("10")},
		{MinQuantity: 100, PriceValue: dec("15")},
	}
	engine := newTestEngine(t, rule)

	tests := []struct {
		qty  int
		want string
	}{
		{1, "190.00"},
		{24, "190.00"},
		{25, "180.00"},
		{100, "170.00"},
	}
	for _, tt := range tests {
		res, err := engine.Resolve(context.Background(), testProduct("200.00"), testCustomer(), tt.qty, testDate)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.FinalPrice().StringFixed(2), "qty %d", tt.qty)
	}
}

func TestEngine_Resolve_ValidityWindowBoundaries(t *testing.T) {
	endsToday := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "7.00")
	endsToday.ValidTo = ptr(testDate)
	endedYesterday := customerRule(highRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "5.00")
	endedYesterday.ValidTo = ptr(testDate.AddDate(0, 0, -1))

	// a store that ignores windows, so the engine's own filtering is exercised
	all := storeFunc(func(context.Context, CustomerPricingContext, ProductPricingContext, time.Time) ([]PricingRule, error) {
		return []PricingRule{endedYesterday, endsToday}, nil
	})
	engine := NewEngine(all, WithLogger(zaptest.NewLogger(t)))

	res, err := engine.Resolve(context.Background(), testProduct("10.00"), testCustomer(), 1, testDate.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, lowRuleID, *res.AppliedRuleID())
	assert.Equal(t, testDate, res.ResolvedAt())
}

func TestEngine_Resolve_NegativeDiscountNotClamped(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "11.00")
	engine := newTestEngine(t, rule)

	res, err := engine.Resolve(context.Background(), testProduct("10.00"), testCustomer(), 1, testDate)
	require.NoError(t, err)
	assert.Equal(t, "-10.00", res.DiscountPercent().StringFixed(2))
	assert.False(t, res.IsDiscounted())
}

func TestEngine_Resolve_ZeroListPrice(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeDiscountPercent, "10")
	engine := newTestEngine(t, rule)

	res, err := engine.Resolve(context.Background(), testProduct("0.00"), testCustomer(), 1, testDate)
	require.NoError(t, err)
	assert.True(t, res.FinalPrice().IsZero())
	assert.True(t, res.DiscountPercent().IsZero())
}

func TestEngine_Resolve_MarginGuardIndependence(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "8.50")
	product := testProduct("12.00")
	product.CostPrice = ptr(money("8.00"))

	withGuard := NewEngine(NewMemoryRuleStore(rule), WithMarginGuard(true, dec("10")))
	withoutGuard := NewEngine(NewMemoryRuleStore(rule), WithMarginGuard(false, dec("10")))

	a, err := withGuard.Resolve(context.Background(), product, testCustomer(), 1, testDate)
	require.NoError(t, err)
	b, err := withoutGuard.Resolve(context.Background(), product, testCustomer(), 1, testDate)
	require.NoError(t, err)

	assert.True(t, a.FinalPrice().Equals(b.FinalPrice()))
	assert.True(t, a.MarginWarning())
	assert.False(t, b.MarginWarning())
}

func TestEngine_Resolve_IsPure(t *testing.T) {
	rules := []PricingRule{
		customerRule(lowRuleID, RuleTypeCustomerPriceTag, tagA, PriceTypeDiscountPercent, "7.5"),
		customerRule(highRuleID, RuleTypeCustomerManufacturer, manufactID, PriceTypeDiscountPercent, "3"),
		groupGlobalRule(thirdRuleID, PriceTypeDiscountPercent, "2"),
	}
	engine := newTestEngine(t, rules...)
	product := testProduct("87.65")
	product.CostPrice = ptr(money("80.00"))

	first, err := engine.Resolve(context.Background(), product, testCustomer(), 4, testDate)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := engine.Resolve(context.Background(), product, testCustomer(), 4, testDate)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.JSONEq(t, string(firstJSON), string(againJSON))
	}
	assert.Equal(t, highRuleID, *first.AppliedRuleID())
}

func TestEngine_Resolve_InvalidInput(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("quantity below one", func(t *testing.T) {
		for _, qty := range []int{0, -3} {
			_, err := engine.Resolve(context.Background(), testProduct("10"), testCustomer(), qty, testDate)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
		}
	})

	t.Run("negative list price", func(t *testing.T) {
		_, err := engine.Resolve(context.Background(), testProduct("-0.01"), testCustomer(), 1, testDate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidProductState))
	})

	t.Run("missing list price", func(t *testing.T) {
		product := ProductPricingContext{ProductID: productID}
		_, err := engine.Resolve(context.Background(), product, testCustomer(), 1, testDate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidProductState))
	})
}

func TestEngine_Resolve_StoreFailure(t *testing.T) {
	cause := errors.New("connection reset by peer")
	calls := 0
	failing := storeFunc(func(context.Context, CustomerPricingContext, ProductPricingContext, time.Time) ([]PricingRule, error) {
		calls++
		return nil, cause
	})
	engine := NewEngine(failing)

	_, err := engine.Resolve(context.Background(), testProduct("10"), testCustomer(), 1, testDate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrCollaboratorUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 1, calls, "no retries")
}

func TestEngine_Resolve_PassesNormalizedDateToStore(t *testing.T) {
	var seen time.Time
	store := storeFunc(func(_ context.Context, _ CustomerPricingContext, _ ProductPricingContext, onDate time.Time) ([]PricingRule, error) {
		seen = onDate
		return nil, nil
	})
	_, err := NewEngine(store).Resolve(context.Background(), testProduct("10"), testCustomer(), 1, testDate.Add(22*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, testDate, seen)
}

func TestEngine_Resolve_InconsistentRulePolicy(t *testing.T) {
	broken := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "1.00")
	broken.Tiers = []PricingTier{
		{MinQuantity: 5, PriceValue: dec("0.90")},
		{MinQuantity: 5, PriceValue: dec("0.80")},
	}
	fallback := groupGlobalRule(highRuleID, PriceTypeDiscountPercent, "10")

	t.Run("skip resolves with remaining rules", func(t *testing.T) {
		engine := NewEngine(NewMemoryRuleStore(broken, fallback), WithLogger(zaptest.NewLogger(t)))
		assert.Equal(t, InconsistentRuleSkip, engine.Policy())

		res, err := engine.Resolve(context.Background(), testProduct("10.00"), testCustomer(), 1, testDate)
		require.NoError(t, err)
		assert.Equal(t, highRuleID, *res.AppliedRuleID())
		assert.Equal(t, "9.00", res.FinalPrice().StringFixed(2))
		assert.Equal(t, []uuid.UUID{lowRuleID}, res.SkippedRuleIDs())
	})

	t.Run("fail aborts the resolution", func(t *testing.T) {
		engine := NewEngine(NewMemoryRuleStore(broken, fallback), WithInconsistentRulePolicy(InconsistentRuleFail))

		_, err := engine.Resolve(context.Background(), testProduct("10.00"), testCustomer(), 1, testDate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrRuleDataInconsistent))
	})

	t.Run("target mismatch is inconsistent", func(t *testing.T) {
		mismatched := customerRule(thirdRuleID, RuleTypeCustomerPriceTag, brandID, PriceTypeFixed, "1.00")
		mismatched.TargetType = TargetTypeBrand
		engine := NewEngine(NewMemoryRuleStore(mismatched))

		res, err := engine.Resolve(context.Background(), testProduct("10.00"), testCustomer(), 1, testDate)
		require.NoError(t, err)
		assert.False(t, res.HasAppliedRule())
		assert.Equal(t, []uuid.UUID{thirdRuleID}, res.SkippedRuleIDs())
	})
}

func TestEngine_Options(t *testing.T) {
	engine := NewEngine(NewMemoryRuleStore(), WithMinorUnits(0), WithInconsistentRulePolicy("bogus"), WithLogger(nil))
	assert.Equal(t, int32(0), engine.MinorUnits())
	assert.Equal(t, InconsistentRuleSkip, engine.Policy())

	assert.Equal(t, valueobject.DefaultMinorUnits, NewEngine(NewMemoryRuleStore()).MinorUnits())
}

func TestNewEngine_DefaultMarginGuard(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "8.50")
	product := testProduct("12.00")
	product.CostPrice = ptr(money("8.00"))

	res, err := NewEngine(NewMemoryRuleStore(rule)).Resolve(context.Background(), product, testCustomer(), 1, testDate)
	require.NoError(t, err)

	assert.True(t, res.MarginWarning())
	require.NotNil(t, res.MarginPercent())
	assert.Equal(t, "5.88", res.MarginPercent().StringFixed(2))
}

func TestPriceResolution_JSON(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerBrand, brandID, PriceTypeDiscountPercent, "12")
	res, err := newTestEngine(t, rule).Resolve(context.Background(), testProduct("299.00"), testCustomer(), 1, testDate)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-06-15", decoded["resolved_at"])
	assert.Equal(t, string(RuleTypeCustomerBrand), decoded["applied_rule_type"])
	assert.Equal(t, lowRuleID.String(), decoded["applied_rule_id"])
	assert.Equal(t, float64(1), decoded["tier_applied"])
	assert.Equal(t, true, decoded["is_discounted"])
	assert.Equal(t, "12", decoded["discount_percent"])
	assert.NotContains(t, decoded, "margin_percent")
	assert.Equal(t, map[string]any{"amount": "263.12", "currency": "EUR"}, decoded["final_price"])
	assert.Equal(t, map[string]any{"amount": "299.00", "currency": "EUR"}, decoded["list_price"])
}

func TestPriceResolution_JSONKeepsCurrencyScale(t *testing.T) {
	rule := customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "8.5")
	res, err := newTestEngine(t, rule).Resolve(context.Background(), testProduct("12"), testCustomer(), 1, testDate)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"final_price":{"amount":"8.50","currency":"EUR"}`)
	assert.Contains(t, string(data), `"list_price":{"amount":"12.00","currency":"EUR"}`)

	zeroDecimal, err := NewEngine(NewMemoryRuleStore(), WithMinorUnits(0)).
		Resolve(context.Background(), testProduct("1000"), testCustomer(), 1, testDate)
	require.NoError(t, err)
	data, err = json.Marshal(zeroDecimal)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"final_price":{"amount":"1000","currency":"EUR"}`)

	unrounded, err := newTestEngine(t).Resolve(context.Background(), testProduct("19.999"), testCustomer(), 1, testDate)
	require.NoError(t, err)
	data, err = json.Marshal(unrounded)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"list_price":{"amount":"19.999","currency":"EUR"}`)
}
