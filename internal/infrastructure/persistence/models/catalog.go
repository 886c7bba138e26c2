package models

import (
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel holds the pricing-relevant columns of a catalog product.
type ProductModel struct {
	BaseModel
	Code           string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string                 `gorm:"type:varchar(200);not null"`
	ListPrice      decimal.NullDecimal    `gorm:"type:decimal(18,4)"`
	CostPrice      decimal.NullDecimal    `gorm:"type:decimal(18,4)"`
	Currency       string                 `gorm:"type:varchar(3)"`
	SeriesID       *uuid.UUID             `gorm:"type:uuid;index"`
	BrandID        *uuid.UUID             `gorm:"type:uuid;index"`
	ManufacturerID *uuid.UUID             `gorm:"type:uuid;index"`
	ProductGroupID *uuid.UUID             `gorm:"type:uuid;index"`
	PriceTags      []ProductPriceTagModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToPricingContext converts the product row into the pricing view of the product.
// A product without a list price gets a zero Money with no currency, which the
// engine rejects as an invalid product state. An empty currency column falls
// back to defaultCurrency.
func (m *ProductModel) ToPricingContext(defaultCurrency valueobject.Currency) pricing.ProductPricingContext {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	ctx := pricing.ProductPricingContext{
		ProductID:      m.ID,
		SeriesID:       m.SeriesID,
		BrandID:        m.BrandID,
		ManufacturerID: m.ManufacturerID,
		ProductGroupID: m.ProductGroupID,
	}
	if m.ListPrice.Valid {
		ctx.ListPrice = valueobject.Zero(currency).WithAmount(m.ListPrice.Decimal)
	}
	if m.CostPrice.Valid {
		cost := valueobject.Zero(currency).WithAmount(m.CostPrice.Decimal)
		ctx.CostPrice = &cost
	}
	if len(m.PriceTags) > 0 {
		ctx.PriceTagIDs = make([]uuid.UUID, len(m.PriceTags))
		for i, tag := range m.PriceTags {
			ctx.PriceTagIDs[i] = tag.TagID
		}
	}
	return ctx
}

// ProductPriceTagModel links a product to a price tag.
type ProductPriceTagModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ProductPriceTagModel) TableName() string {
	return "product_price_tags"
}

// CustomerModel holds the pricing-relevant columns of a customer.
type CustomerModel struct {
	BaseModel
	Code            string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string     `gorm:"type:varchar(200);not null"`
	CustomerGroupID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToPricingContext converts the customer row into the pricing view of the customer.
func (m *CustomerModel) ToPricingContext() pricing.CustomerPricingContext {
	return pricing.CustomerPricingContext{
		CustomerID:      m.ID,
		CustomerGroupID: m.CustomerGroupID,
	}
}

// AllModels lists every model for AutoMigrate in tests and local sqlite runs.
func AllModels() []any {
	return []any{
		&PricingRuleModel{},
		&PricingTierModel{},
		&ProductModel{},
		&ProductPriceTagModel{},
		&CustomerModel{},
	}
}
