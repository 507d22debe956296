// Package sandbox is a payment.Tokenizer for local development. It accepts
// every token except the well-known decline tokens.
package sandbox

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/xenking/bookie/internal/domain/payment"
)

// Tokens that simulate provider rejections.
const (
	DeclineToken = "tok_chargeDeclined"
	ExpiredToken = "tok_chargeDeclinedExpiredCard"
)

var _ payment.Tokenizer = Tokenizer{}

// Tokenizer mints random payment method references.
type Tokenizer struct{}

// Tokenize implements payment.Tokenizer.
func (Tokenizer) Tokenize(_ context.Context, card payment.Card, _ payment.Billing) (string, error) {
	switch strings.TrimSpace(card.Token) {
	case "":
		return "", &payment.Error{Code: "missing_token", Message: "card token required"}
	case DeclineToken:
		return "", &payment.Error{Code: "card_declined", Message: "Your card was declined."}
	case ExpiredToken:
		return "", &payment.Error{Code: "expired_card", Message: "Your card has expired."}
	}
	return "pm_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
