package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one stored collection
type KVEntry struct {
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (KVEntry) TableName() string {
	return "kv_entries"
}

// GormStore is a KVStore backed by a SQL table. The quota is the total
// size of all stored values.
type GormStore struct {
	db    *gorm.DB
	quota int64
}

// NewGormStore creates a new GORM-backed key/value store
func NewGormStore(db *gorm.DB, quotaBytes int64) *GormStore {
	return &GormStore{
		db:    db,
		quota: quotaBytes,
	}
}

// AutoMigrate creates the kv_entries table. Postgres deployments use the
// migrate command instead.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&KVEntry{})
}

// Get returns the value stored under key
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts value under key unless it would exceed the quota
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.quota > 0 {
			var used int64
			err := tx.Model(&KVEntry{}).
				Where("key <> ?", key).
				Select("COALESCE(SUM(LENGTH(value)), 0)").
				Scan(&used).Error
			if err != nil {
				return fmt.Errorf("failed to measure stored size: %w", err)
			}
			if used+int64(len(value)) > s.quota {
				return quotaError(key, used, int64(len(value)), s.quota)
			}
		}

		entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes the given keys
func (s *GormStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete keys %v: %w", keys, err)
	}
	return nil
}

// Close is a no-op; the Database owns the connection
func (s *GormStore) Close() error {
	return nil
}
