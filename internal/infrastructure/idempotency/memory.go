// Package idempotency remembers keys that have already been acted on, such
// as the ids of invoices whose stock was released.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a claimed key is remembered
const DefaultTTL = 30 * 24 * time.Hour

// MemoryStore keeps claimed keys in a map. Suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time // key -> expiry
	clock   func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates a store and starts the expiry sweep
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		ttl:      ttl,
		entries:  make(map[string]time.Time),
		clock:    time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(5 * time.Minute)
	return s
}

// Claim records key and reports whether this was the first claim.
// An expired claim may be made again.
func (s *MemoryStore) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if expiresAt, ok := s.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.entries[key] = now.Add(s.ttl)
	return true, nil
}

// Release forgets key so it can be claimed again
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of remembered keys, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the sweep. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
		}
	}
}
