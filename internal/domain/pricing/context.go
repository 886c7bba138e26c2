package pricing

import (
	"time"

	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ProductPricingContext is the read-only catalog snapshot used for one
// resolution call
type ProductPricingContext struct {
	ProductID      uuid.UUID          `json:"product_id"`
	ListPrice      valueobject.Money  `json:"list_price"`
	CostPrice      *valueobject.Money `json:"cost_price,omitempty"`
	SeriesID       *uuid.UUID         `json:"series_id,omitempty"`
	BrandID        *uuid.UUID         `json:"brand_id,omitempty"`
	ManufacturerID *uuid.UUID         `json:"manufacturer_id,omitempty"`
	ProductGroupID *uuid.UUID         `json:"product_group_id,omitempty"`
	PriceTagIDs    []uuid.UUID        `json:"price_tag_ids,omitempty"`
}

// HasPriceTag returns true if the product carries the given price tag
func (p ProductPricingContext) HasPriceTag(tagID uuid.UUID) bool {
	for _, id := range p.PriceTagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// CustomerPricingContext identifies the customer and their group
type CustomerPricingContext struct {
	CustomerID      uuid.UUID  `json:"customer_id"`
	CustomerGroupID *uuid.UUID `json:"customer_group_id,omitempty"`
}

// NormalizeDate truncates t to its calendar date and expresses it as UTC
// midnight. All validity comparisons happen at date granularity.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MatchesCandidate reports whether a rule is a resolution candidate for the
// customer and product on the given date: active, subject matches the
// customer or its group, target matches the product or one of its
// classifications, and the date lies within the validity window.
func MatchesCandidate(rule PricingRule, customer CustomerPricingContext, product ProductPricingContext, onDate time.Time) bool {
	if !rule.Active {
		return false
	}
	if !matchesSubject(rule, customer) {
		return false
	}
	if !matchesTarget(rule, product) {
		return false
	}
	return rule.IsValidOn(onDate)
}

func matchesSubject(rule PricingRule, customer CustomerPricingContext) bool {
	if rule.SubjectCustomerID != nil && *rule.SubjectCustomerID == customer.CustomerID {
		return true
	}
	return rule.SubjectGroupID != nil &&
		customer.CustomerGroupID != nil &&
		*rule.SubjectGroupID == *customer.CustomerGroupID
}

func matchesTarget(rule PricingRule, product ProductPricingContext) bool {
	if rule.TargetType == TargetTypeGlobal {
		return true
	}
	if rule.TargetID == nil {
		return false
	}
	target := *rule.TargetID
	switch rule.TargetType {
	case TargetTypeProduct:
		return target == product.ProductID
	case TargetTypeSeries:
		return sameID(product.SeriesID, target)
	case TargetTypeBrand:
		return sameID(product.BrandID, target)
	case TargetTypeManufacturer:
		return sameID(product.ManufacturerID, target)
	case TargetTypeProductGroup:
		return sameID(product.ProductGroupID, target)
	case TargetTypePriceTag:
		return product.HasPriceTag(target)
	default:
		return false
	}
}

func sameID(id *uuid.UUID, target uuid.UUID) bool {
	return id != nil && *id == target
}
