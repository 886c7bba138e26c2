package pricing

import (
	"sort"
)

// TierLadder is the ordered, never-empty set of quantity breakpoints of a
// rule. The first entry is always the implicit base tier at quantity 1
// carrying the rule's own price value.
type TierLadder struct {
	tiers []PricingTier
}

// BuildTierLadder synthesises the base tier and merges the rule's explicit
// tiers into an ascending ladder. Duplicate breakpoints, breakpoints below 2
// (quantity 1 belongs to the base tier) and out-of-range tier values are
// rule data inconsistencies.
func BuildTierLadder(rule PricingRule) (TierLadder, error) {
	tiers := make([]PricingTier, 0, len(rule.Tiers)+1)
	tiers = append(tiers, PricingTier{MinQuantity: 1, PriceValue: rule.PriceValue})

	seen := make(map[int]struct{}, len(rule.Tiers))
	for _, t := range rule.Tiers {
		if t.MinQuantity < 1 {
			return TierLadder{}, inconsistent(rule, "tier min quantity %d must be at least 1", t.MinQuantity)
		}
		if t.MinQuantity == 1 {
			return TierLadder{}, inconsistent(rule, "explicit tier at quantity 1 collides with the base price")
		}
		if _, dup := seen[t.MinQuantity]; dup {
			return TierLadder{}, inconsistent(rule, "duplicate tier at quantity %d", t.MinQuantity)
		}
		if err := validatePriceValue(rule, t.PriceValue); err != nil {
			return TierLadder{}, err
		}
		seen[t.MinQuantity] = struct{}{}
		tiers = append(tiers, t)
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinQuantity < tiers[j].MinQuantity
	})
	return TierLadder{tiers: tiers}, nil
}

// Resolve returns the tier with the greatest min quantity that does not
// exceed quantity. Quantities below 1 resolve to the base tier.
func (l TierLadder) Resolve(quantity int) PricingTier {
	for i := len(l.tiers) - 1; i >= 0; i-- {
		if quantity >= l.tiers[i].MinQuantity {
			return l.tiers[i]
		}
	}
	return l.tiers[0]
}
