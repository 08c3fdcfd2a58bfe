package persistence

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process KVStore with an optional byte quota.
// Keys and values both count towards the quota.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
}

// NewMemoryStore creates a MemoryStore. A quota of 0 means unbounded.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quotaBytes,
	}
}

// Get returns a copy of the value stored under key
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores value under key unless it would exceed the quota
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		var used int64
		for k, v := range s.data {
			if k != key {
				used += int64(len(k) + len(v))
			}
		}
		incoming := int64(len(key) + len(value))
		if used+incoming > s.quota {
			return quotaError(key, used, incoming, s.quota)
		}
	}
	s.data[key] = slices.Clone(value)
	return nil
}

// Delete removes the given keys
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Used returns the number of bytes currently stored
func (s *MemoryStore) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	for k, v := range s.data {
		used += int64(len(k) + len(v))
	}
	return used
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
