// Package redis stores cart blobs in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/bookie/internal/domain/cart"
)

var _ cart.Storage = (*CartStorage)(nil)

// CartStorage implements cart.Storage on a Redis string per key.
type CartStorage struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartStorage returns a CartStorage. A positive ttl expires idle carts;
// zero keeps them forever.
func NewCartStorage(client redis.UniversalClient, ttl time.Duration) *CartStorage {
	return &CartStorage{client: client, ttl: ttl}
}

// Load implements cart.Storage.
func (s *CartStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNoBlob
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return data, nil
}

// Save implements cart.Storage. Saving refreshes the expiry.
func (s *CartStorage) Save(ctx context.Context, key string, blob []byte) error {
	if err := s.client.Set(ctx, key, blob, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Ping reports whether the server answers.
func (s *CartStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
