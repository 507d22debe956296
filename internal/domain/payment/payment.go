// Package payment defines the tokenization port used at checkout. Raw card
// data never reaches the service; clients send a provider token which is
// exchanged for a reusable payment method reference.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrUnavailable is returned when the payment provider cannot be reached.
var ErrUnavailable = errors.New("payment provider unavailable")

// Card identifies the shopper's card by a client-side token.
type Card struct {
	Token string
}

// Billing holds the billing details sent with a tokenization request.
type Billing struct {
	Name    string
	Email   string
	Line1   string
	City    string
	State   string
	Zip     string
	Country string
}

// Tokenizer exchanges a card token for a payment method reference.
type Tokenizer interface {
	Tokenize(ctx context.Context, card Card, billing Billing) (string, error)
}

// Error is a rejection reported by the payment provider, such as a declined
// or expired card.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment rejected: %s", e.Message)
	}
	return fmt.Sprintf("payment rejected (%s): %s", e.Code, e.Message)
}
