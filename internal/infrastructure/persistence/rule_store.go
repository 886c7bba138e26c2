package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRuleStore implements pricing.RuleStore using GORM
type GormRuleStore struct {
	db *gorm.DB
}

// NewGormRuleStore creates a new GormRuleStore
func NewGormRuleStore(db *gorm.DB) *GormRuleStore {
	return &GormRuleStore{db: db}
}

var _ pricing.RuleStore = (*GormRuleStore)(nil)

// FindCandidates loads the active rules whose subject, target and validity
// window match the customer and product on onDate, tiers included.
func (s *GormRuleStore) FindCandidates(
	ctx context.Context,
	customer pricing.CustomerPricingContext,
	product pricing.ProductPricingContext,
	onDate time.Time,
) ([]pricing.PricingRule, error) {
	day := pricing.NormalizeDate(onDate)
	subjectSQL, subjectArgs := subjectCondition(customer)
	targetSQL, targetArgs := targetCondition(product)

	var rows []models.PricingRuleModel
	err := s.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_quantity ASC")
		}).
		Where("active = ?", true).
		Where(subjectSQL, subjectArgs...).
		Where(targetSQL, targetArgs...).
		Where("valid_from IS NULL OR valid_from <= ?", day).
		Where("valid_to IS NULL OR valid_to >= ?", day).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query pricing rules: %w", err)
	}

	rules := make([]pricing.PricingRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

func subjectCondition(customer pricing.CustomerPricingContext) (string, []any) {
	if customer.CustomerGroupID == nil {
		return "subject_customer_id = ?", []any{customer.CustomerID}
	}
	return "subject_customer_id = ? OR subject_group_id = ?", []any{customer.CustomerID, *customer.CustomerGroupID}
}

func targetCondition(product pricing.ProductPricingContext) (string, []any) {
	clauses := []string{"target_type = ?", "(target_type = ? AND target_id = ?)"}
	args := []any{string(pricing.TargetTypeGlobal), string(pricing.TargetTypeProduct), product.ProductID}

	classifications := []struct {
		targetType pricing.TargetType
		id         *uuid.UUID
	}{
		{pricing.TargetTypeSeries, product.SeriesID},
		{pricing.TargetTypeBrand, product.BrandID},
		{pricing.TargetTypeManufacturer, product.ManufacturerID},
		{pricing.TargetTypeProductGroup, product.ProductGroupID},
	}
	for _, c := range classifications {
		if c.id == nil {
			continue
		}
		clauses = append(clauses, "(target_type = ? AND target_id = ?)")
		args = append(args, string(c.targetType), *c.id)
	}
	if len(product.PriceTagIDs) > 0 {
		clauses = append(clauses, "(target_type = ? AND target_id IN ?)")
		args = append(args, string(pricing.TargetTypePriceTag), product.PriceTagIDs)
	}
	return strings.Join(clauses, " OR "), args
}
