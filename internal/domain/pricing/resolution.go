package pricing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceResolution is the immutable outcome of one resolution call
type PriceResolution struct {
	finalPrice      valueobject.Money
	listPrice       valueobject.Money
	discountPercent decimal.Decimal
	appliedRuleID   *uuid.UUID
	appliedRuleType *RuleType
	tierApplied     *int
	isDiscounted    bool
	marginWarning   bool
	marginPercent   *decimal.Decimal
	resolvedAt      time.Time
	skippedRuleIDs  []uuid.UUID
	minorUnits      int32
}

// FinalPrice returns the price the customer pays
func (r *PriceResolution) FinalPrice() valueobject.Money { return r.finalPrice }

// ListPrice returns the undiscounted catalog price
func (r *PriceResolution) ListPrice() valueobject.Money { return r.listPrice }

// DiscountPercent returns the discount relative to list price, two places
func (r *PriceResolution) DiscountPercent() decimal.Decimal { return r.discountPercent }

// IsDiscounted returns true if the final price is below list price
func (r *PriceResolution) IsDiscounted() bool { return r.isDiscounted }

// MarginWarning returns true if the margin guard flagged the price
func (r *PriceResolution) MarginWarning() bool { return r.marginWarning }

// ResolvedAt returns the calendar date used for validity checks
func (r *PriceResolution) ResolvedAt() time.Time { return r.resolvedAt }

// AppliedRuleID returns the winning rule, or nil if the list price applied
func (r *PriceResolution) AppliedRuleID() *uuid.UUID {
	if r.appliedRuleID == nil {
		return nil
	}
	id := *r.appliedRuleID
	return &id
}

// AppliedRuleType returns the winning rule's type, or nil
func (r *PriceResolution) AppliedRuleType() *RuleType {
	if r.appliedRuleType == nil {
		return nil
	}
	t := *r.appliedRuleType
	return &t
}

// TierApplied returns the min quantity of the tier used, or nil
func (r *PriceResolution) TierApplied() *int {
	if r.tierApplied == nil {
		return nil
	}
	q := *r.tierApplied
	return &q
}

// MarginPercent returns the evaluated margin, or nil when not evaluated
func (r *PriceResolution) MarginPercent() *decimal.Decimal {
	if r.marginPercent == nil {
		return nil
	}
	m := *r.marginPercent
	return &m
}

// SkippedRuleIDs returns the candidates dropped as inconsistent
func (r *PriceResolution) SkippedRuleIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(r.skippedRuleIDs))
	copy(out, r.skippedRuleIDs)
	return out
}

// HasAppliedRule returns true if a rule produced the final price
func (r *PriceResolution) HasAppliedRule() bool {
	return r.appliedRuleID != nil
}

type fixedMoneyJSON struct {
	Amount   string               `json:"amount"`
	Currency valueobject.Currency `json:"currency"`
}

// fixedMoney pads prices to the currency scale, so 8.5 is "8.50". Amounts
// carrying more places than the scale, such as unrounded list prices, are
// written in full.
func (r *PriceResolution) fixedMoney(m valueobject.Money) fixedMoneyJSON {
	amount := m.Amount().String()
	if _, frac, _ := strings.Cut(amount, "."); int32(len(frac)) < r.minorUnits {
		amount = m.Amount().StringFixed(r.minorUnits)
	}
	return fixedMoneyJSON{Amount: amount, Currency: m.Currency()}
}

// MarshalJSON implements json.Marshaler
func (r *PriceResolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FinalPrice      fixedMoneyJSON   `json:"final_price"`
		ListPrice       fixedMoneyJSON   `json:"list_price"`
		DiscountPercent decimal.Decimal  `json:"discount_percent"`
		AppliedRuleID   *uuid.UUID       `json:"applied_rule_id"`
		AppliedRuleType *RuleType        `json:"applied_rule_type"`
		TierApplied     *int             `json:"tier_applied"`
		IsDiscounted    bool             `json:"is_discounted"`
		MarginWarning   bool             `json:"margin_warning"`
		MarginPercent   *decimal.Decimal `json:"margin_percent,omitempty"`
		ResolvedAt      string           `json:"resolved_at"`
		SkippedRuleIDs  []uuid.UUID      `json:"skipped_rule_ids,omitempty"`
	}{
		FinalPrice:      r.fixedMoney(r.finalPrice),
		ListPrice:       r.fixedMoney(r.listPrice),
		DiscountPercent: r.discountPercent,
		AppliedRuleID:   r.appliedRuleID,
		AppliedRuleType: r.appliedRuleType,
		TierApplied:     r.tierApplied,
		IsDiscounted:    r.isDiscounted,
		MarginWarning:   r.marginWarning,
		MarginPercent:   r.marginPercent,
		ResolvedAt:      r.resolvedAt.Format(time.DateOnly),
		SkippedRuleIDs:  r.skippedRuleIDs,
	})
}
