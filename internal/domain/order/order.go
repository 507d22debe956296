package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Order is an immutable snapshot of a checked-out cart. Only Status and
// UpdatedAt change after creation.
type Order struct {
	ID              string
	OwnerID         string
	OwnerContact    string
	Items           []LineItem
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	ShippingAddress Address
	PaymentRef      string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItem is a copy of a cart line taken at checkout.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	Creator   string          `json:"creator"`
	Thumbnail string          `json:"thumbnail"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
}

// Address is the structured postal destination of an order.
type Address struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Line1   string `json:"line1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Filter selects orders for listing. Zero values match everything.
type Filter struct {
	// Status restricts to a single status; 0 means all.
	Status Status
	// OwnerID restricts to orders of one customer.
	OwnerID string
	// Search matches an order id prefix or a substring of the owner contact,
	// case-insensitively.
	Search string
	// Limit caps the number of results; 0 means unlimited.
	Limit int
}

// FoldSearch case-folds s for search matching. Every repository compares
// folded forms, so backends agree on non-ASCII contacts.
func FoldSearch(s string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(s))
}

// Matches reports whether o satisfies f, ignoring Limit. Repositories that
// cannot push the filter down to their backend use it directly.
func (f Filter) Matches(o *Order) bool {
	if f.Status != 0 && o.Status != f.Status {
		return false
	}
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if q := FoldSearch(f.Search); q != "" {
		if !strings.HasPrefix(FoldSearch(o.ID), q) &&
			!strings.Contains(FoldSearch(o.OwnerContact), q) {
			return false
		}
	}
	return true
}

// Repository is the remote order store. Create assigns ID, CreatedAt and
// UpdatedAt. UpdateStatus is last-write-wins and stamps UpdatedAt. List
// returns orders newest first.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
}
