package pricing

import (
	"time"

	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	testDate = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	customerID   = uuid.MustParse("11111111-0000-0000-0000-000000000001")
	otherCustID  = uuid.MustParse("11111111-0000-0000-0000-000000000002")
	groupID      = uuid.MustParse("22222222-0000-0000-0000-000000000001")
	productID    = uuid.MustParse("33333333-0000-0000-0000-000000000001")
	seriesID     = uuid.MustParse("44444444-0000-0000-0000-000000000001")
	brandID      = uuid.MustParse("55555555-0000-0000-0000-000000000001")
	manufactID   = uuid.MustParse("66666666-0000-0000-0000-000000000001")
	prodGroupID  = uuid.MustParse("77777777-0000-0000-0000-000000000001")
	tagA         = uuid.MustParse("88888888-0000-0000-0000-00000000000a")
	tagB         = uuid.MustParse("88888888-0000-0000-0000-00000000000b")
	unrelatedID  = uuid.MustParse("99999999-0000-0000-0000-000000000001")
	lowRuleID    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	highRuleID   = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	thirdRuleID  = uuid.MustParse("cccccccc-0000-0000-0000-000000000001")
	fourthRuleID = uuid.MustParse("dddddddd-0000-0000-0000-000000000001")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func money(s string) valueobject.Money {
	return valueobject.MustMoney(s, valueobject.EUR)
}

func ptr[T any](v T) *T {
	return &v
}

func testCustomer() CustomerPricingContext {
	return CustomerPricingContext{CustomerID: customerID, CustomerGroupID: ptr(groupID)}
}

func testProduct(list string) ProductPricingContext {
	return ProductPricingContext{
		ProductID:      productID,
		ListPrice:      money(list),
		SeriesID:       ptr(seriesID),
		BrandID:        ptr(brandID),
		ManufacturerID: ptr(manufactID),
		ProductGroupID: ptr(prodGroupID),
		PriceTagIDs:    []uuid.UUID{tagA, tagB},
	}
}

// customerRule builds an active customer rule of the given type aimed at target
func customerRule(id uuid.UUID, ruleType RuleType, target uuid.UUID, priceType PriceType, value string) PricingRule {
	return PricingRule{
		ID:                id,
		RuleType:          ruleType,
		SubjectCustomerID: ptr(customerID),
		TargetType:        ruleType.ExpectedTarget(),
		TargetID:          ptr(target),
		PriceType:         priceType,
		PriceValue:        dec(value),
		Active:            true,
	}
}

func groupGlobalRule(id uuid.UUID, priceType PriceType, value string) PricingRule {
	return PricingRule{
		ID:             id,
		RuleType:       RuleTypeGroupGlobal,
		SubjectGroupID: ptr(groupID),
		TargetType:     TargetTypeGlobal,
		PriceType:      priceType,
		PriceValue:     dec(value),
		Active:         true,
	}
}

func ids(rules []PricingRule) []uuid.UUID {
	out := make([]uuid.UUID, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
