// Package stripe exchanges client-side card tokens for Stripe payment
// methods.
package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xenking/bookie/internal/domain/payment"
)

// DefaultBaseURL is the Stripe API root.
const DefaultBaseURL = "https://api.stripe.com"

var _ payment.Tokenizer = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client creates payment methods through a circuit breaker. Card rejections
// do not count as breaker failures.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// New returns a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetAuthToken(cfg.SecretKey).
			SetTimeout(cfg.Timeout).
			SetRetryCount(0),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "stripe",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				var perr *payment.Error
				return err == nil || errors.As(err, &perr)
			},
		}),
	}
}

type paymentMethod struct {
	ID string `json:"id"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Tokenize implements payment.Tokenizer.
func (c *Client) Tokenize(ctx context.Context, card payment.Card, billing payment.Billing) (string, error) {
	if strings.TrimSpace(card.Token) == "" {
		return "", &payment.Error{Code: "missing_token", Message: "card token required"}
	}

	form := map[string]string{
		"type":                                  "card",
		"card[token]":                           card.Token,
		"billing_details[name]":                 billing.Name,
		"billing_details[email]":                billing.Email,
		"billing_details[address][line1]":       billing.Line1,
		"billing_details[address][city]":        billing.City,
		"billing_details[address][state]":       billing.State,
		"billing_details[address][postal_code]": billing.Zip,
		"billing_details[address][country]":     billing.Country,
	}

	v, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetFormData(form).
			Post("/v1/payment_methods")
		if err != nil {
			return nil, errors.Wrapf(payment.ErrUnavailable, "request: %v", err)
		}

		code := resp.StatusCode()
		if code == http.StatusOK {
			var pm paymentMethod
			if err := json.Unmarshal(resp.Body(), &pm); err != nil || pm.ID == "" {
				return nil, errors.Wrap(payment.ErrUnavailable, "malformed payment method response")
			}
			return pm.ID, nil
		}

		var env errorEnvelope
		_ = json.Unmarshal(resp.Body(), &env)
		switch {
		case code == http.StatusPaymentRequired,
			code == http.StatusBadRequest && env.Error.Type != "",
			env.Error.Type == "card_error":
			msg := env.Error.Message
			if msg == "" {
				msg = "card rejected"
			}
			return nil, &payment.Error{Code: env.Error.Code, Message: msg}
		default:
			return nil, errors.Wrapf(payment.ErrUnavailable, "status %d", code)
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		zctx.From(ctx).Warn("Payment circuit open", zap.Error(err))
		return "", errors.Wrapf(payment.ErrUnavailable, "circuit %s", c.breaker.State())
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
