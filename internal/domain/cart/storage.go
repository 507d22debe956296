package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
)

// KeyPrefix namespaces persisted carts in the key-value storage.
const KeyPrefix = "bookie_cart"

// Key returns the storage key for the cart owned by the given user.
func Key(userID string) string {
	return KeyPrefix + ":" + userID
}

// ErrNoBlob is returned by Storage.Load when nothing is stored under the key.
var ErrNoBlob = errors.New("no blob stored")

// Storage is durable key-value storage of one serialized blob per key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// CorruptionError describes a persisted cart that could not be decoded or
// that violates the cart invariants. Store recovers from it by starting over
// with an empty cart; it is never returned to callers.
type CorruptionError struct {
	Key string
	Err error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("cart %s is corrupt: %v", e.Key, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Encode serializes the cart as {"items":[...]}.
func Encode(c Cart) ([]byte, error) {
	if c.Items == nil {
		c.Items = []Item{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal cart")
	}
	return data, nil
}

// Decode parses a persisted cart and checks its invariants.
func Decode(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, errors.Wrap(err, "unmarshal cart")
	}
	if err := c.validate(); err != nil {
		return Cart{}, err
	}
	return c, nil
}
