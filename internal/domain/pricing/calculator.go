package pricing

import (
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// discountPercentPlaces is the precision of the reported discount percent
const discountPercentPlaces int32 = 2

// CalculatePrice applies a resolved tier value to the list price.
// Fixed prices replace the list price; discount percentages reduce it.
// The result is rounded half-up once, to minorUnits decimal places.
func CalculatePrice(listPrice valueobject.Money, priceType PriceType, tierValue decimal.Decimal, minorUnits int32) valueobject.Money {
	var final valueobject.Money
	switch priceType {
	case PriceTypeFixed:
		final = listPrice.WithAmount(tierValue)
	case PriceTypeDiscountPercent:
		final = listPrice.MultiplyByPercent(hundred.Sub(tierValue))
	default:
		final = listPrice
	}
	return final.RoundToMinorUnits(minorUnits)
}

// DiscountPercent returns (list - final) / list * 100 rounded to two places,
// or zero when the list price is not positive. Prices above list produce a
// negative percentage.
func DiscountPercent(listPrice, finalPrice valueobject.Money) decimal.Decimal {
	if !listPrice.IsPositive() {
		return decimal.Zero
	}
	diff := listPrice.Amount().Sub(finalPrice.Amount())
	return diff.Mul(hundred).Div(listPrice.Amount()).Round(discountPercentPlaces)
}
