// Package pricing implements customer price resolution: rule ranking,
// quantity tiers, price calculation and the margin guard.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType identifies the level of a rule in the override hierarchy
type RuleType string

const (
	RuleTypeCustomerProduct      RuleType = "CUSTOMER_PRODUCT"
	RuleTypeCustomerSeries       RuleType = "CUSTOMER_SERIES"
	RuleTypeCustomerBrand        RuleType = "CUSTOMER_BRAND"
	RuleTypeCustomerManufacturer RuleType = "CUSTOMER_MANUFACTURER"
	RuleTypeCustomerProductGroup RuleType = "CUSTOMER_PRODUCT_GROUP"
	RuleTypeCustomerPriceTag     RuleType = "CUSTOMER_PRICE_TAG"
	RuleTypeGroupGlobal          RuleType = "GROUP_GLOBAL"
)

// TargetType identifies what part of the catalog a rule applies to
type TargetType string

const (
	TargetTypeProduct      TargetType = "PRODUCT"
	TargetTypeSeries       TargetType = "SERIES"
	TargetTypeBrand        TargetType = "BRAND"
	TargetTypeManufacturer TargetType = "MANUFACTURER"
	TargetTypeProductGroup TargetType = "PRODUCT_GROUP"
	TargetTypePriceTag     TargetType = "PRICE_TAG"
	TargetTypeGlobal       TargetType = "GLOBAL"
)

// PriceType determines how a rule's price value is applied
type PriceType string

const (
	PriceTypeFixed           PriceType = "FIXED"
	PriceTypeDiscountPercent PriceType = "DISCOUNT_PERCENT"
)

// IsValid returns true if the price type is known
func (p PriceType) IsValid() bool {
	return p == PriceTypeFixed || p == PriceTypeDiscountPercent
}

// ruleTypeTrait is the single source of truth for hierarchy order and the
// subject/target shape each rule type requires.
type ruleTypeTrait struct {
	rank          int
	groupSubject  bool
	allowedTarget TargetType
}

var ruleTypeTraits = map[RuleType]ruleTypeTrait{
	RuleTypeCustomerProduct:      {rank: 1, allowedTarget: TargetTypeProduct},
	RuleTypeCustomerSeries:       {rank: 2, allowedTarget: TargetTypeSeries},
	RuleTypeCustomerBrand:        {rank: 3, allowedTarget: TargetTypeBrand},
	RuleTypeCustomerManufacturer: {rank: 4, allowedTarget: TargetTypeManufacturer},
	RuleTypeCustomerProductGroup: {rank: 5, allowedTarget: TargetTypeProductGroup},
	RuleTypeCustomerPriceTag:     {rank: 6, allowedTarget: TargetTypePriceTag},
	RuleTypeGroupGlobal:          {rank: 7, groupSubject: true, allowedTarget: TargetTypeGlobal},
}

// IsValid returns true if the rule type is part of the hierarchy
func (r RuleType) IsValid() bool {
	_, ok := ruleTypeTraits[r]
	return ok
}

// Rank returns the hierarchy rank of the rule type; lower ranks win.
// Unknown types sort last.
func (r RuleType) Rank() int {
	traits, ok := ruleTypeTraits[r]
	if !ok {
		return math.MaxInt
	}
	return traits.rank
}

// ExpectedTarget returns the only target type allowed for this rule type
func (r RuleType) ExpectedTarget() TargetType {
	return ruleTypeTraits[r].allowedTarget
}

// RequiresGroupSubject reports whether the rule type applies to a customer
// group rather than to an individual customer
func (r RuleType) RequiresGroupSubject() bool {
	return ruleTypeTraits[r].groupSubject
}

// PricingTier is a quantity breakpoint owned by a pricing rule
type PricingTier struct {
	MinQuantity int             `json:"min_quantity"`
	PriceValue  decimal.Decimal `json:"price_value"`
}

// PricingRule is a stored override directive mapping a subject (customer or
// customer group) and a catalog target to a fixed price or a discount.
type PricingRule struct {
	ID                uuid.UUID
	RuleType          RuleType
	SubjectCustomerID *uuid.UUID
	SubjectGroupID    *uuid.UUID
	TargetType        TargetType
	TargetID          *uuid.UUID
	PriceType         PriceType
	PriceValue        decimal.Decimal
	ValidFrom         *time.Time
	ValidTo           *time.Time
	Priority          int
	Active            bool
	Tiers             []PricingTier
}

// IsValidOn reports whether the rule's validity window contains the given
// calendar date. Both bounds are inclusive; nil bounds are open.
func (r PricingRule) IsValidOn(onDate time.Time) bool {
	day := NormalizeDate(onDate)
	if r.ValidFrom != nil && NormalizeDate(*r.ValidFrom).After(day) {
		return false
	}
	if r.ValidTo != nil && NormalizeDate(*r.ValidTo).Before(day) {
		return false
	}
	return true
}

// Validate checks the structural invariants of the rule itself. Tier
// consistency is checked when the tier ladder is built.
func (r PricingRule) Validate() error {
	if !r.RuleType.IsValid() {
		return inconsistent(r, "unknown rule type %q", r.RuleType)
	}

	hasCustomer := r.SubjectCustomerID != nil && *r.SubjectCustomerID != uuid.Nil
	hasGroup := r.SubjectGroupID != nil && *r.SubjectGroupID != uuid.Nil
	if hasCustomer == hasGroup {
		return inconsistent(r, "exactly one of customer or group subject must be set")
	}
	if r.RuleType.RequiresGroupSubject() && !hasGroup {
		return inconsistent(r, "rule type %s requires a customer group subject", r.RuleType)
	}
	if !r.RuleType.RequiresGroupSubject() && !hasCustomer {
		return inconsistent(r, "rule type %s requires a customer subject", r.RuleType)
	}

	if r.TargetType != r.RuleType.ExpectedTarget() {
		return inconsistent(r, "target type %s does not match rule type %s", r.TargetType, r.RuleType)
	}
	hasTarget := r.TargetID != nil && *r.TargetID != uuid.Nil
	if r.TargetType == TargetTypeGlobal && hasTarget {
		return inconsistent(r, "global rule must not have a target id")
	}
	if r.TargetType != TargetTypeGlobal && !hasTarget {
		return inconsistent(r, "target id is required for target type %s", r.TargetType)
	}

	if !r.PriceType.IsValid() {
		return inconsistent(r, "unknown price type %q", r.PriceType)
	}
	if err := validatePriceValue(r, r.PriceValue); err != nil {
		return err
	}

	if r.ValidFrom != nil && r.ValidTo != nil && NormalizeDate(*r.ValidFrom).After(NormalizeDate(*r.ValidTo)) {
		return inconsistent(r, "valid_from is after valid_to")
	}
	return nil
}

func validatePriceValue(r PricingRule, v decimal.Decimal) error {
	if v.IsNegative() {
		return inconsistent(r, "price value %s must not be negative", v)
	}
	if r.PriceType == PriceTypeDiscountPercent && v.GreaterThan(hundred) {
		return inconsistent(r, "discount percent %s exceeds 100", v)
	}
	return nil
}

func inconsistent(r PricingRule, format string, args ...any) error {
	msg := fmt.Sprintf("pricing rule %s: %s", r.ID, fmt.Sprintf(format, args...))
	return shared.NewDomainError(shared.CodeRuleDataInconsistent, msg)
}

var hundred = decimal.NewFromInt(100)
