package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestRegisterDBTracing(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, zap.NewNop()))
		assert.Nil(t, db.Callback().Query().Get("telemetry:after_query"))
	})

	t.Run("enabled traces queries", func(t *testing.T) {
		recorder := withRecorder(t)
		db := openTestDB(t)
		require.NoError(t, RegisterDBTracing(db, DBTracingConfig{
			Enabled:         true,
			DBSystem:        "sqlite",
			SlowQueryThresh: time.Nanosecond,
		}, zap.NewNop()))
		assert.NotNil(t, db.Callback().Query().Get("telemetry:after_query"))

		require.NoError(t, db.AutoMigrate(&tracedRow{}))
		require.NoError(t, db.Create(&tracedRow{Name: "pen"}).Error)
		var rows []tracedRow
		require.NoError(t, db.Find(&rows).Error)
		assert.Len(t, rows, 1)

		assert.NotEmpty(t, recorder.Ended())
	})
}
