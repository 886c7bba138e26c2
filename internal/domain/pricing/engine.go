package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InconsistentRulePolicy controls what happens when a candidate rule fails
// validation
type InconsistentRulePolicy string

const (
	// InconsistentRuleSkip logs the rule and resolves without it
	InconsistentRuleSkip InconsistentRulePolicy = "skip"
	// InconsistentRuleFail aborts the resolution with RULE_DATA_INCONSISTENT
	InconsistentRuleFail InconsistentRulePolicy = "fail"
)

// IsValid returns true if the policy is known
func (p InconsistentRulePolicy) IsValid() bool {
	return p == InconsistentRuleSkip || p == InconsistentRuleFail
}

// Engine resolves prices. It holds only immutable configuration and is safe
// for concurrent use.
type Engine struct {
	store      RuleStore
	logger     *zap.Logger
	minorUnits int32
	guard      MarginGuard
	policy     InconsistentRulePolicy
}

// EngineOption is a functional option for configuring the engine
type EngineOption func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMinorUnits sets the number of decimal places final prices are rounded to
func WithMinorUnits(places int32) EngineOption {
	return func(e *Engine) {
		if places >= 0 {
			e.minorUnits = places
		}
	}
}

// WithMarginGuard configures margin checking
func WithMarginGuard(enabled bool, minMarginPercent decimal.Decimal) EngineOption {
	return func(e *Engine) {
		e.guard = MarginGuard{Enabled: enabled, MinMarginPercent: minMarginPercent}
	}
}

// WithInconsistentRulePolicy sets how inconsistent rule data is handled
func WithInconsistentRulePolicy(policy InconsistentRulePolicy) EngineOption {
	return func(e *Engine) {
		if policy.IsValid() {
			e.policy = policy
		}
	}
}

// NewEngine creates a new engine reading candidates from store
func NewEngine(store RuleStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		logger:     zap.NewNop(),
		minorUnits: valueobject.DefaultMinorUnits,
		guard:      DefaultMarginGuard(),
		policy:     InconsistentRuleSkip,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// preparedRules holds validated candidates and their tier ladders
type preparedRules struct {
	rules   []PricingRule
	ladders map[uuid.UUID]TierLadder
}

// Resolve determines the price a customer pays for quantity units of a
// product on the given date. The rule store is the only collaborator
// consulted; everything after the fetch is pure computation.
func (e *Engine) Resolve(
	ctx context.Context,
	product ProductPricingContext,
	customer CustomerPricingContext,
	quantity int,
	onDate time.Time,
) (*PriceResolution, error) {
	if quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be at least 1, got %d", quantity))
	}
	if product.ListPrice.Currency() == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidProductState,
			fmt.Sprintf("product %s has no list price", product.ProductID))
	}
	if product.ListPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidProductState,
			fmt.Sprintf("product %s has negative list price %s", product.ProductID, product.ListPrice.Amount()))
	}

	day := NormalizeDate(onDate)

	candidates, err := e.store.FindCandidates(ctx, customer, product, day)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeCollaboratorUnavailable, "rule store lookup failed", err)
	}

	prepared, skipped, err := e.prepare(candidates, customer, product, day)
	if err != nil {
		return nil, err
	}

	res := &PriceResolution{
		listPrice:      product.ListPrice,
		finalPrice:     product.ListPrice,
		resolvedAt:     day,
		skippedRuleIDs: skipped,
		minorUnits:     e.minorUnits,
	}

	if winner, ok := SelectWinner(prepared.rules); ok {
		tier := prepared.ladders[winner.ID].Resolve(quantity)
		res.finalPrice = CalculatePrice(product.ListPrice, winner.PriceType, tier.PriceValue, e.minorUnits)

		ruleID := winner.ID
		ruleType := winner.RuleType
		minQty := tier.MinQuantity
		res.appliedRuleID = &ruleID
		res.appliedRuleType = &ruleType
		res.tierApplied = &minQty
	}

	res.discountPercent = DiscountPercent(res.listPrice, res.finalPrice)
	res.isDiscounted = res.finalPrice.Amount().LessThan(res.listPrice.Amount())

	check := e.guard.Check(res.finalPrice, product.CostPrice)
	res.marginWarning = check.Warning
	res.marginPercent = check.MarginPercent

	if res.marginWarning {
		e.logger.Debug("Price below minimum margin",
			zap.String("product_id", product.ProductID.String()),
			zap.String("customer_id", customer.CustomerID.String()),
			zap.String("final_price", res.finalPrice.Amount().String()),
		)
	}

	return res, nil
}

// prepare validates candidates and builds their tier ladders. Rules the
// store should not have returned are dropped silently; inconsistent rules
// are handled per policy.
func (e *Engine) prepare(
	candidates []PricingRule,
	customer CustomerPricingContext,
	product ProductPricingContext,
	day time.Time,
) (preparedRules, []uuid.UUID, error) {
	prepared := preparedRules{
		rules:   make([]PricingRule, 0, len(candidates)),
		ladders: make(map[uuid.UUID]TierLadder, len(candidates)),
	}
	var skipped []uuid.UUID

	for _, rule := range candidates {
		if !MatchesCandidate(rule, customer, product, day) {
			e.logger.Debug("Dropping non-matching candidate from rule store",
				zap.String("rule_id", rule.ID.String()),
			)
			continue
		}

		ladder, err := prepareRule(rule)
		if err != nil {
			if e.policy == InconsistentRuleFail {
				return preparedRules{}, nil, err
			}
			e.logger.Warn("Skipping inconsistent pricing rule",
				zap.String("rule_id", rule.ID.String()),
				zap.String("rule_type", string(rule.RuleType)),
				zap.Error(err),
			)
			skipped = append(skipped, rule.ID)
			continue
		}
		prepared.rules = append(prepared.rules, rule)
		prepared.ladders[rule.ID] = ladder
	}
	return prepared, skipped, nil
}

func prepareRule(rule PricingRule) (TierLadder, error) {
	if err := rule.Validate(); err != nil {
		return TierLadder{}, err
	}
	return BuildTierLadder(rule)
}

// MinorUnits returns the configured rounding granularity
func (e *Engine) MinorUnits() int32 {
	return e.minorUnits
}

// Policy returns the configured inconsistent-rule policy
func (e *Engine) Policy() InconsistentRulePolicy {
	return e.policy
}
