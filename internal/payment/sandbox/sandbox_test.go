package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bookie/internal/domain/payment"
)

func TestTokenize(t *testing.T) {
	ctx := context.Background()

	ref, err := Tokenizer{}.Tokenize(ctx, payment.Card{Token: "tok_visa"}, payment.Billing{})
	require.NoError(t, err)
	assert.Regexp(t, `^pm_sandbox_[0-9a-f]{32}$`, ref)

	for tok, code := range map[string]string{
		"":           "missing_token",
		DeclineToken: "card_declined",
		ExpiredToken: "expired_card",
	} {
		_, err := Tokenizer{}.Tokenize(ctx, payment.Card{Token: tok}, payment.Billing{})
		var perr *payment.Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, code, perr.Code)
	}
}
