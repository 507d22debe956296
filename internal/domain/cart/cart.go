// Package cart implements the session-local shopping cart: a small state
// machine over line items that is persisted after every mutation.
package cart

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is used for items whose descriptor carries no currency.
	DefaultCurrency = "USD"
	// MaxQuantity caps the units of a single line.
	MaxQuantity = 9999
)

var (
	// ErrInvalidItem is returned when an item descriptor has no identifier.
	ErrInvalidItem = errors.New("item id required")
	// ErrInvalidQuantity is returned when a line would hold fewer than one or
	// more than MaxQuantity units.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 9999")
)

// Item is a single cart line. At most one Item exists per ID and Quantity is
// always within [1, MaxQuantity].
type Item struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Creator   string          `json:"creator"`
	Thumbnail string          `json:"thumbnail"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns Price * Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the ordered collection of items. Order is insertion order and
// carries no meaning.
type Cart struct {
	Items []Item `json:"items"`
}

func (c *Cart) index(id string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == id })
}

// Add merges item into the cart: an existing line with the same ID has its
// quantity increased, otherwise the item is appended. A merge that would
// exceed MaxQuantity leaves the cart unchanged.
func (c *Cart) Add(item Item) error {
	if item.Quantity < 1 || item.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if i := c.index(item.ID); i >= 0 {
		// Both operands are at most MaxQuantity, so the sum cannot wrap.
		if c.Items[i].Quantity+item.Quantity > MaxQuantity {
			return ErrInvalidQuantity
		}
		c.Items[i].Quantity += item.Quantity
		return nil
	}
	if item.Currency == "" {
		item.Currency = DefaultCurrency
	}
	c.Items = append(c.Items, item)
	return nil
}

// Remove deletes the line with the given ID. Missing IDs are ignored.
func (c *Cart) Remove(id string) {
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool { return it.ID == id })
}

// SetQuantity sets the quantity of the line with the given ID. A quantity of
// zero or less removes the line. Missing IDs are ignored.
func (c *Cart) SetQuantity(id string, quantity int) error {
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	i := c.index(id)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	}
	c.Items[i].Quantity = quantity
	return nil
}

// Total returns the sum of Price * Quantity over all lines.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count returns the number of units in the cart.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Snapshot returns a deep copy of the items.
func (c Cart) Snapshot() []Item {
	return slices.Clone(c.Items)
}

// validate checks the per-cart invariants: unique IDs and quantities within
// [1, MaxQuantity].
func (c Cart) validate() error {
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if it.ID == "" {
			return ErrInvalidItem
		}
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return errors.Errorf("item %s: quantity %d", it.ID, it.Quantity)
		}
		if _, ok := seen[it.ID]; ok {
			return errors.Errorf("item %s: duplicate entry", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
