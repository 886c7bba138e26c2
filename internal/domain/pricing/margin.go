package pricing

import (
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// marginPercentPlaces is the precision of the reported margin percent.
// The warning decision uses the unrounded value.
const marginPercentPlaces int32 = 4

// DefaultMinMarginPercent is the minimum margin enforced when none is configured
var DefaultMinMarginPercent = decimal.NewFromInt(10)

// DefaultMarginGuard is enabled with DefaultMinMarginPercent
func DefaultMarginGuard() MarginGuard {
	return MarginGuard{Enabled: true, MinMarginPercent: DefaultMinMarginPercent}
}

// MarginGuard flags prices whose margin over cost falls below a minimum.
// It annotates results and never changes a price.
type MarginGuard struct {
	Enabled          bool
	MinMarginPercent decimal.Decimal
}

// MarginCheck is the outcome of a margin evaluation
type MarginCheck struct {
	Warning bool
	// MarginPercent is nil when the margin was not evaluated
	MarginPercent *decimal.Decimal
}

// Check evaluates the margin of finalPrice over costPrice
func (g MarginGuard) Check(finalPrice valueobject.Money, costPrice *valueobject.Money) MarginCheck {
	if !g.Enabled || costPrice == nil || costPrice.IsZero() {
		return MarginCheck{}
	}
	if finalPrice.IsZero() {
		return MarginCheck{Warning: costPrice.IsPositive()}
	}

	margin := finalPrice.Amount().Sub(costPrice.Amount()).Mul(hundred).Div(finalPrice.Amount())
	reported := margin.Round(marginPercentPlaces)
	return MarginCheck{
		Warning:       margin.LessThan(g.MinMarginPercent),
		MarginPercent: &reported,
	}
}
