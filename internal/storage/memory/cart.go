// Package memory provides in-process implementations of the storage ports.
// They back local development and tests; nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/bookie/internal/domain/cart"
)

var _ cart.Storage = (*CartStorage)(nil)

// CartStorage keeps cart blobs in a map.
type CartStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewCartStorage returns an empty CartStorage.
func NewCartStorage() *CartStorage {
	return &CartStorage{blobs: make(map[string][]byte)}
}

// Load implements cart.Storage.
func (s *CartStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, cart.ErrNoBlob
	}
	return slices.Clone(b), nil
}

// Save implements cart.Storage.
func (s *CartStorage) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = slices.Clone(blob)
	return nil
}
