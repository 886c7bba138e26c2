package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWinner_HierarchyBeatsPriority(t *testing.T) {
	global := groupGlobalRule(lowRuleID, PriceTypeDiscountPercent, "50")
	global.Priority = 1000
	product := customerRule(highRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "9.00")
	product.Priority = -5
	brand := customerRule(thirdRuleID, RuleTypeCustomerBrand, brandID, PriceTypeDiscountPercent, "10")
	brand.Priority = 500

	winner, ok := SelectWinner([]PricingRule{global, brand, product})
	require.True(t, ok)
	assert.Equal(t, highRuleID, winner.ID)

	winner, ok = SelectWinner([]PricingRule{global, brand})
	require.True(t, ok)
	assert.Equal(t, thirdRuleID, winner.ID)
}

func TestSelectWinner_PriorityWithinRank(t *testing.T) {
	a := customerRule(lowRuleID, RuleTypeCustomerPriceTag, tagA, PriceTypeDiscountPercent, "5")
	a.Priority = 1
	b := customerRule(highRuleID, RuleTypeCustomerPriceTag, tagB, PriceTypeDiscountPercent, "7")
	b.Priority = 2

	winner, ok := SelectWinner([]PricingRule{a, b})
	require.True(t, ok)
	assert.Equal(t, highRuleID, winner.ID)
}

func TestSelectWinner_RuleIDTieBreak(t *testing.T) {
	a := customerRule(lowRuleID, RuleTypeCustomerPriceTag, tagA, PriceTypeDiscountPercent, "5")
	b := customerRule(highRuleID, RuleTypeCustomerPriceTag, tagB, PriceTypeDiscountPercent, "7")

	for i := 0; i < 20; i++ {
		input := []PricingRule{b, a}
		if i%2 == 0 {
			input = []PricingRule{a, b}
		}
		winner, ok := SelectWinner(input)
		require.True(t, ok)
		assert.Equal(t, lowRuleID, winner.ID)
	}
}

func TestRuleLess_IsStrictOrder(t *testing.T) {
	rules := []PricingRule{
		customerRule(highRuleID, RuleTypeCustomerBrand, brandID, PriceTypeFixed, "1"),
		customerRule(lowRuleID, RuleTypeCustomerProduct, productID, PriceTypeFixed, "2"),
		groupGlobalRule(thirdRuleID, PriceTypeDiscountPercent, "3"),
	}
	for _, a := range rules {
		assert.False(t, ruleLess(a, a))
		for _, b := range rules {
			if a.ID != b.ID {
				assert.NotEqual(t, ruleLess(a, b), ruleLess(b, a), "%s vs %s", a.ID, b.ID)
			}
		}
	}
}

func TestSelectWinner_Empty(t *testing.T) {
	_, ok := SelectWinner(nil)
	assert.False(t, ok)
}
