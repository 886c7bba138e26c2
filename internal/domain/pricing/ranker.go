package pricing

import "bytes"

// ruleLess orders rules by hierarchy rank ascending, then priority
// descending, then rule ID ascending.
func ruleLess(a, b PricingRule) bool {
	if ra, rb := a.RuleType.Rank(), b.RuleType.Rank(); ra != rb {
		return ra < rb
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	// Byte order of a UUID equals the lexical order of its canonical string.
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// SelectWinner returns the highest ranked candidate, or false when there are
// no candidates
func SelectWinner(candidates []PricingRule) (PricingRule, bool) {
	if len(candidates) == 0 {
		return PricingRule{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if ruleLess(c, best) {
			best = c
		}
	}
	return best, true
}
