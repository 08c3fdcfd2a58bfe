package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresStore starts a PostgreSQL container, applies the embedded
// migrations and returns a store on it
func newPostgresStore(t *testing.T, quota int64) *GormStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	// The migrator would close sqlDB; the container goes away with it anyway
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return NewGormStore(db, quota)
}

func TestGormStore_Postgres(t *testing.T) {
	store := newPostgresStore(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "inventory:categories", []byte("[]")))
	require.NoError(t, store.Set(ctx, "inventory:categories", []byte(`[{"name":"Tools"}]`)))
	data, ok, err := store.Get(ctx, "inventory:categories")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"name":"Tools"}]`, string(data))

	err = store.Set(ctx, "inventory:products", make([]byte, 64*1024))
	assert.True(t, errors.Is(err, shared.ErrQuotaExceeded))

	m := NewManager(store, DefaultConfig())
	results := m.Save(ctx, inventory.Snapshot{Products: makeProducts(3, 0)}, []inventory.Collection{inventory.CollectionProducts})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Len(t, m.Load(ctx).Products, 3)

	require.NoError(t, m.Clear(ctx))
	assert.Empty(t, m.Load(ctx).Products)
}
