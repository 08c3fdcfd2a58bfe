package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
)

// Ensure MemoryImageArchive implements persistence.ImageArchive
var _ persistence.ImageArchive = (*MemoryImageArchive)(nil)

// MemoryImageArchive keeps archived images in process memory.
// Use this for development when no object storage is configured.
type MemoryImageArchive struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]string
}

// NewMemoryImageArchive creates a new MemoryImageArchive
func NewMemoryImageArchive(prefix string) *MemoryImageArchive {
	return &MemoryImageArchive{
		prefix:  prefix,
		objects: make(map[string]string),
	}
}

// Put stores image and returns its key
func (a *MemoryImageArchive) Put(_ context.Context, name, image string) (string, error) {
	if name == "" {
		return "", errors.New("object name is required")
	}
	key := a.prefix + name

	a.mu.Lock()
	a.objects[key] = image
	a.mu.Unlock()
	return key, nil
}

// Fetch returns the image stored under key
func (a *MemoryImageArchive) Fetch(_ context.Context, key string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	image, ok := a.objects[key]
	if !ok {
		return "", shared.NewNotFoundError("Archived image not found: " + key)
	}
	return image, nil
}

// Len returns the number of archived images
func (a *MemoryImageArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
