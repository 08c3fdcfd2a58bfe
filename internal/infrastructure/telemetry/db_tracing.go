package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "telemetry:started_at"

// DBTracingConfig controls query tracing
type DBTracingConfig struct {
	Enabled         bool
	DBSystem        string
	SlowQueryThresh time.Duration
}

// RegisterDBTracing installs otelgorm on db and marks spans of queries
// slower than the configured threshold.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(cfg.DBSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	if cfg.SlowQueryThresh > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQueryThresh, logger); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration, logger *zap.Logger) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startedAtKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)
		if elapsed < threshold {
			return
		}
		span := trace.SpanFromContext(tx.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("Slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}

	cb := db.Callback()
	steps := []func() error{
		func() error {
			if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("telemetry:after_create", after)
		},
		func() error {
			if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("telemetry:after_query", after)
		},
		func() error {
			if err := cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after)
		},
		func() error {
			if err := cb.Row().Before("gorm:row").Register("telemetry:before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("telemetry:after_row", after)
		},
	}
	for _, register := range steps {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
