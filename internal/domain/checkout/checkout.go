// Package checkout turns the session's cart into an order.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookie/internal/domain/auth"
	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/order"
	"github.com/xenking/bookie/internal/domain/payment"
)

// Orders is the part of the order lifecycle used at checkout.
type Orders interface {
	Create(ctx context.Context, sess auth.Session, req order.CreateRequest) (*order.Order, error)
	Quote(items []order.LineItem) order.Quote
}

// Request is the shopper's checkout form.
type Request struct {
	ShippingAddress order.Address
	Card            payment.Card
}

// Service orchestrates payment tokenization, order creation and cart
// clearing.
type Service struct {
	orders   Orders
	payments payment.Tokenizer
}

// NewService returns a checkout Service.
func NewService(orders Orders, payments payment.Tokenizer) *Service {
	return &Service{orders: orders, payments: payments}
}

// Quote previews the price of the current cart.
func (s *Service) Quote(ctx context.Context, store *cart.Store) (order.Quote, error) {
	items, err := store.Items(ctx)
	if err != nil {
		return order.Quote{}, err
	}
	return s.orders.Quote(LineItems(items)), nil
}

// Checkout places an order for the cart in store. The cart is emptied only
// after the order was created; if creation fails the cart is left intact so
// the shopper can retry.
func (s *Service) Checkout(ctx context.Context, sess auth.Session, store *cart.Store, req Request) (*order.Order, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}

	items, err := store.Items(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	if len(items) == 0 {
		return nil, order.ErrEmptyCart
	}
	lines := LineItems(items)
	if err := order.ValidateItems(lines); err != nil {
		return nil, err
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	addr := req.ShippingAddress
	ref, err := s.payments.Tokenize(ctx, req.Card, payment.Billing{
		Name:    addr.Name,
		Email:   addr.Email,
		Line1:   addr.Line1,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.Zip,
		Country: addr.Country,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tokenize card")
	}

	o, err := s.orders.Create(ctx, sess, order.CreateRequest{
		Items:           lines,
		ShippingAddress: addr,
		PaymentRef:      ref,
	})
	if err != nil {
		return nil, err
	}

	if err := store.Clear(ctx); err != nil {
		zctx.From(ctx).Error("Clear cart after checkout",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

// LineItems snapshots cart lines as order line items.
func LineItems(items []cart.Item) []order.LineItem {
	out := make([]order.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, order.LineItem{
			ItemID:    it.ID,
			Title:     it.Title,
			Creator:   it.Creator,
			Thumbnail: it.Thumbnail,
			UnitPrice: it.Price,
			Currency:  it.Currency,
			Quantity:  it.Quantity,
		})
	}
	return out
}
