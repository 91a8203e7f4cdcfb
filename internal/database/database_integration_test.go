//go:build integration

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pharmalens/price-compare-service/internal/config"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("price_compare_test"),
		postgres.WithUsername("pricecompare"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:              host,
		Port:              port.Int(),
		Name:              "price_compare_test",
		User:              "pricecompare",
		Password:          "testpassword",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}

	db, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestDB_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("health reports healthy", func(t *testing.T) {
		health := db.Health(ctx)
		assert.Equal(t, "healthy", health.Status)
		assert.Empty(t, health.Error)
	})

	t.Run("queries run through the pool", func(t *testing.T) {
		var result int
		require.NoError(t, db.QueryRow(ctx, "SELECT 1").Scan(&result))
		assert.Equal(t, 1, result)
	})

	t.Run("migrations apply and roll back", func(t *testing.T) {
		migrator, err := NewMigrator(db, filepath.Join("..", "..", "migrations"), zerolog.Nop())
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())
		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(1), version)

		var exists bool
		err = db.QueryRow(ctx, "SELECT to_regclass('public.search_history') IS NOT NULL").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, migrator.Up())
		require.NoError(t, migrator.Down())
	})
}
