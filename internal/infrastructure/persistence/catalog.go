package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/erp/pricing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalogProvider implements pricing.CatalogProvider over the products tables
type GormCatalogProvider struct {
	db              *gorm.DB
	defaultCurrency valueobject.Currency
}

// NewGormCatalogProvider creates a new GormCatalogProvider. Products without a
// currency column value are priced in defaultCurrency.
func NewGormCatalogProvider(db *gorm.DB, defaultCurrency valueobject.Currency) *GormCatalogProvider {
	return &GormCatalogProvider{db: db, defaultCurrency: defaultCurrency}
}

var _ pricing.CatalogProvider = (*GormCatalogProvider)(nil)

// GetProductContext loads the pricing view of a product
func (p *GormCatalogProvider) GetProductContext(ctx context.Context, productID uuid.UUID) (pricing.ProductPricingContext, error) {
	var model models.ProductModel
	if err := p.db.WithContext(ctx).
		Preload("PriceTags").
		First(&model, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pricing.ProductPricingContext{}, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("product %s not found", productID))
		}
		return pricing.ProductPricingContext{}, fmt.Errorf("load product %s: %w", productID, err)
	}
	return model.ToPricingContext(p.defaultCurrency), nil
}

// GormCustomerDirectory implements pricing.CustomerDirectory over the customers table
type GormCustomerDirectory struct {
	db *gorm.DB
}

// NewGormCustomerDirectory creates a new GormCustomerDirectory
func NewGormCustomerDirectory(db *gorm.DB) *GormCustomerDirectory {
	return &GormCustomerDirectory{db: db}
}

var _ pricing.CustomerDirectory = (*GormCustomerDirectory)(nil)

// GetCustomerContext loads the pricing view of a customer
func (d *GormCustomerDirectory) GetCustomerContext(ctx context.Context, customerID uuid.UUID) (pricing.CustomerPricingContext, error) {
	var model models.CustomerModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pricing.CustomerPricingContext{}, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("customer %s not found", customerID))
		}
		return pricing.CustomerPricingContext{}, fmt.Errorf("load customer %s: %w", customerID, err)
	}
	return model.ToPricingContext(), nil
}
