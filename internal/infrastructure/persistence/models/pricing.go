package models

import (
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingRuleModel is the persistence model for a pricing rule.
type PricingRuleModel struct {
	BaseModel
	RuleType          string             `gorm:"type:varchar(32);not null;index"`
	SubjectCustomerID *uuid.UUID         `gorm:"type:uuid;index"`
	SubjectGroupID    *uuid.UUID         `gorm:"type:uuid;index"`
	TargetType        string             `gorm:"type:varchar(32);not null"`
	TargetID          *uuid.UUID         `gorm:"type:uuid;index"`
	PriceType         string             `gorm:"type:varchar(32);not null"`
	PriceValue        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	ValidFrom         *time.Time         `gorm:"type:date"`
	ValidTo           *time.Time         `gorm:"type:date"`
	Priority          int                `gorm:"not null;default:0"`
	Active            bool               `gorm:"not null;index"`
	Tiers             []PricingTierModel `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PricingRuleModel) TableName() string {
	return "pricing_rules"
}

// ToDomain converts the persistence model to a domain PricingRule.
func (m *PricingRuleModel) ToDomain() pricing.PricingRule {
	rule := pricing.PricingRule{
		ID:                m.ID,
		RuleType:          pricing.RuleType(m.RuleType),
		SubjectCustomerID: m.SubjectCustomerID,
		SubjectGroupID:    m.SubjectGroupID,
		TargetType:        pricing.TargetType(m.TargetType),
		TargetID:          m.TargetID,
		PriceType:         pricing.PriceType(m.PriceType),
		PriceValue:        m.PriceValue,
		ValidFrom:         normalizedDate(m.ValidFrom),
		ValidTo:           normalizedDate(m.ValidTo),
		Priority:          m.Priority,
		Active:            m.Active,
	}
	if len(m.Tiers) > 0 {
		rule.Tiers = make([]pricing.PricingTier, len(m.Tiers))
		for i, t := range m.Tiers {
			rule.Tiers[i] = t.ToDomain()
		}
	}
	return rule
}

// FromDomain populates the persistence model from a domain PricingRule.
func (m *PricingRuleModel) FromDomain(r pricing.PricingRule) {
	m.ID = r.ID
	m.RuleType = string(r.RuleType)
	m.SubjectCustomerID = r.SubjectCustomerID
	m.SubjectGroupID = r.SubjectGroupID
	m.TargetType = string(r.TargetType)
	m.TargetID = r.TargetID
	m.PriceType = string(r.PriceType)
	m.PriceValue = r.PriceValue
	m.ValidFrom = normalizedDate(r.ValidFrom)
	m.ValidTo = normalizedDate(r.ValidTo)
	m.Priority = r.Priority
	m.Active = r.Active
	m.Tiers = make([]PricingTierModel, len(r.Tiers))
	for i, t := range r.Tiers {
		m.Tiers[i] = PricingTierModel{RuleID: r.ID, MinQuantity: t.MinQuantity, PriceValue: t.PriceValue}
	}
}

// PricingRuleModelFromDomain creates a new persistence model from a domain PricingRule.
func PricingRuleModelFromDomain(r pricing.PricingRule) *PricingRuleModel {
	m := &PricingRuleModel{}
	m.FromDomain(r)
	return m
}

// PricingTierModel is the persistence model for one quantity tier of a rule.
type PricingTierModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	RuleID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_pricing_tiers_rule_min_qty,priority:1"`
	MinQuantity int             `gorm:"not null;uniqueIndex:uq_pricing_tiers_rule_min_qty,priority:2"`
	PriceValue  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PricingTierModel) TableName() string {
	return "pricing_tiers"
}

// ToDomain converts the persistence model to a domain PricingTier.
func (m PricingTierModel) ToDomain() pricing.PricingTier {
	return pricing.PricingTier{MinQuantity: m.MinQuantity, PriceValue: m.PriceValue}
}

func normalizedDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := pricing.NormalizeDate(*t)
	return &d
}
