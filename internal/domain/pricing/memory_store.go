package pricing

import (
	"context"
	"sync"
	"time"
)

// MemoryRuleStore is a RuleStore over an in-process rule set
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules []PricingRule
}

// NewMemoryRuleStore creates a store holding the given rules
func NewMemoryRuleStore(rules ...PricingRule) *MemoryRuleStore {
	s := &MemoryRuleStore{}
	s.Replace(rules)
	return s
}

// Replace swaps the whole rule set
func (s *MemoryRuleStore) Replace(rules []PricingRule) {
	cp := make([]PricingRule, len(rules))
	copy(cp, rules)
	s.mu.Lock()
	s.rules = cp
	s.mu.Unlock()
}

// Add appends a rule
func (s *MemoryRuleStore) Add(rule PricingRule) {
	s.mu.Lock()
	s.rules = append(s.rules, rule)
	s.mu.Unlock()
}

// FindCandidates implements RuleStore
func (s *MemoryRuleStore) FindCandidates(ctx context.Context, customer CustomerPricingContext, product ProductPricingContext, onDate time.Time) ([]PricingRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []PricingRule
	for _, r := range s.rules {
		if MatchesCandidate(r, customer, product, onDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ RuleStore = (*MemoryRuleStore)(nil)
