package main

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// storeBackend is the opened key/value store plus what the rest of main
// needs to know about it
type storeBackend struct {
	store  persistence.KVStore
	redis  *persistence.RedisStore // set for the redis backend only
	checks map[string]func(context.Context) error
	closer func() error
}

func (b *storeBackend) Close() error {
	if err := b.store.Close(); err != nil {
		return err
	}
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// openStore opens the backend selected by storage.backend. The PostgreSQL
// table is created by cmd/migrate; SQLite creates it on start.
func openStore(cfg *config.Config, log *zap.Logger) (*storeBackend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		return &storeBackend{store: persistence.NewMemoryStore(cfg.Storage.QuotaBytes)}, nil

	case config.BackendRedis:
		rs, err := persistence.NewRedisStoreFromConfig(cfg.Storage.Redis, cfg.Storage.QuotaBytes, log)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			store:  rs,
			redis:  rs,
			checks: map[string]func(context.Context) error{"redis": rs.Ping},
		}, nil

	case config.BackendSQLite, config.BackendPostgres:
		db, err := persistence.NewDatabase(cfg.Storage, log, logger.MapGormLogLevel(cfg.Log.Level))
		if err != nil {
			return nil, err
		}
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			DBSystem:        cfg.Storage.Backend,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log); err != nil {
			_ = db.Close()
			return nil, err
		}

		gs := persistence.NewGormStore(db.DB, cfg.Storage.QuotaBytes)
		if cfg.Storage.Backend == config.BackendSQLite {
			if err := gs.AutoMigrate(); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
			}
		}

		sqlDB, err := db.DB.DB()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("Database connected successfully", zap.String("backend", cfg.Storage.Backend))
		return &storeBackend{
			store:  gs,
			checks: map[string]func(context.Context) error{"database": sqlDB.PingContext},
			closer: db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
