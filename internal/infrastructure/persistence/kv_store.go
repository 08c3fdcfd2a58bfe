package persistence

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
)

// KVStore is a capacity-bounded key/value store holding one serialized
// collection per key. Set returns an error wrapping shared.ErrQuotaExceeded
// when the write would exceed the store's capacity.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func quotaError(key string, used, incoming, quota int64) error {
	return fmt.Errorf("write of %d bytes to %s with %d bytes in use exceeds quota of %d: %w",
		incoming, key, used, quota, shared.ErrQuotaExceeded)
}
