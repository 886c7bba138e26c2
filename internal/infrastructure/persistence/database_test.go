package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}
}

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(sqliteConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, db.Driver())
	assert.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.AutoMigrate())

	for _, table := range []string{"pricing_rules", "pricing_tiers", "products", "product_price_tags", "customers"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.MaxOpenConnections)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(sqliteConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}
