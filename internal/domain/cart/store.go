package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier receives the side effects of cart mutations, typically to update
// an item-count badge or show a toast.
type Notifier interface {
	ItemAdded(ctx context.Context, item Item)
	CountChanged(ctx context.Context, count int)
}

// LogNotifier reports cart side effects to the context logger.
type LogNotifier struct{}

// ItemAdded implements Notifier.
func (LogNotifier) ItemAdded(ctx context.Context, item Item) {
	zctx.From(ctx).Debug("Item added to cart",
		zap.String("item_id", item.ID),
		zap.String("title", item.Title),
		zap.Int("quantity", item.Quantity),
	)
}

// CountChanged implements Notifier.
func (LogNotifier) CountChanged(ctx context.Context, count int) {
	zctx.From(ctx).Debug("Cart count changed", zap.Int("count", count))
}

// Store owns the single active cart of one browsing session. Every mutation
// loads the persisted cart, applies the change and saves the full cart before
// returning. A persisted cart that cannot be decoded is replaced by an empty
// one.
type Store struct {
	mu       sync.Mutex
	storage  Storage
	key      string
	notifier Notifier
}

// NewStore returns a Store persisting under key. A nil notifier defaults to
// LogNotifier.
func NewStore(storage Storage, key string, notifier Notifier) *Store {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Store{
		storage:  storage,
		key:      key,
		notifier: notifier,
	}
}

// load returns the persisted cart. Missing and corrupt blobs both yield an
// empty cart.
func (s *Store) load(ctx context.Context) (Cart, error) {
	data, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, ErrNoBlob) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, errors.Wrapf(err, "load cart %s", s.key)
	}

	c, err := Decode(data)
	if err != nil {
		cerr := &CorruptionError{Key: s.key, Err: err}
		zctx.From(ctx).Warn("Resetting corrupt cart", zap.Error(cerr))
		return Cart{}, nil
	}
	return c, nil
}

func (s *Store) save(ctx context.Context, c Cart) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		return errors.Wrapf(err, "save cart %s", s.key)
	}
	s.notifier.CountChanged(ctx, c.Count())
	return nil
}

// mutate runs fn against the current cart and persists the result. Nothing
// is saved when fn fails.
func (s *Store) mutate(ctx context.Context, fn func(c *Cart) error) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return Cart{}, err
	}
	if err := fn(&c); err != nil {
		return Cart{}, err
	}
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// AddItem adds quantity units of item. An existing line with the same ID is
// incremented. A line never exceeds MaxQuantity; an add that would push it
// over fails with ErrInvalidQuantity and leaves the cart untouched.
func (s *Store) AddItem(ctx context.Context, item Item, quantity int) (Cart, error) {
	if item.ID == "" {
		return Cart{}, ErrInvalidItem
	}
	if quantity < 1 || quantity > MaxQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	item.Quantity = quantity

	c, err := s.mutate(ctx, func(c *Cart) error { return c.Add(item) })
	if err != nil {
		return Cart{}, err
	}
	s.notifier.ItemAdded(ctx, item)
	return c, nil
}

// RemoveItem removes the line with the given ID, if present.
func (s *Store) RemoveItem(ctx context.Context, id string) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) error {
		c.Remove(id)
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it; a
// missing ID leaves the cart unchanged. Quantities above MaxQuantity fail
// with ErrInvalidQuantity.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (Cart, error) {
	if quantity > MaxQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	return s.mutate(ctx, func(c *Cart) error { return c.SetQuantity(id, quantity) })
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, func(c *Cart) error {
		c.Items = nil
		return nil
	})
	return err
}

// Cart returns the current cart without modifying storage.
func (s *Store) Cart(ctx context.Context) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Items returns a snapshot of the current items.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}

// Total returns the sum of Price * Quantity over the current items.
func (s *Store) Total(ctx context.Context) (decimal.Decimal, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total(), nil
}
