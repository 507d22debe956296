package order

import (
	"github.com/shopspring/decimal"
)

// ShippingPolicy charges a flat fee unless the subtotal exceeds FreeOver.
type ShippingPolicy struct {
	FreeOver decimal.Decimal
	FlatFee  decimal.Decimal
}

// DefaultShippingPolicy waives the 5.99 fee above a 50.00 subtotal.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeOver: decimal.NewFromInt(50),
		FlatFee:  decimal.RequireFromString("5.99"),
	}
}

// Fee returns the shipping surcharge for subtotal.
func (p ShippingPolicy) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeOver) {
		return decimal.Zero
	}
	return p.FlatFee
}

// Quote is the price breakdown of a set of line items.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Quote prices items under the policy. Amounts are rounded to 2 places.
func (p ShippingPolicy) Quote(items []LineItem) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)
	shipping := p.Fee(subtotal).Round(2)

	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
