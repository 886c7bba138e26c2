package persistence

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var onDate = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

// newTestDB opens a private shared-cache in-memory sqlite DB so that
// preload queries on other pool connections see the same data.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// newMockDB returns a postgres-dialect gorm DB backed by sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func datePtr(t time.Time) *time.Time { return &t }

func seedRule(t *testing.T, db *gorm.DB, rule pricing.PricingRule) pricing.PricingRule {
	t.Helper()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.PriceType == "" {
		rule.PriceType = pricing.PriceTypeDiscountPercent
		rule.PriceValue = decimal.NewFromInt(5)
	}
	require.NoError(t, db.Create(models.PricingRuleModelFromDomain(rule)).Error)
	return rule
}
