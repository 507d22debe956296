package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookie/internal/domain/auth"
	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/catalog"
	"github.com/xenking/bookie/internal/domain/order"
	"github.com/xenking/bookie/internal/domain/payment"
	"github.com/xenking/bookie/pkg/httpmiddleware"
)

// badRequestError reports a request body or parameter that cannot be parsed.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

var writeError = httpmiddleware.WriteError

// statusOf maps a domain error to an HTTP status and a client-safe message.
func statusOf(err error) (int, string) {
	var (
		badReq     *badRequestError
		validation *order.ValidationError
		transition *order.TransitionError
		unavail    *order.UnavailableError
		rejected   *payment.Error
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Error()
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest, order.ErrEmptyCart.Error()
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, validation.Error()
	case errors.Is(err, cart.ErrInvalidItem):
		return http.StatusUnprocessableEntity, cart.ErrInvalidItem.Error()
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, cart.ErrInvalidQuantity.Error()
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, order.ErrNotFound.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, catalog.ErrNotFound.Error()
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden, order.ErrForbidden.Error()
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, auth.ErrUnauthenticated.Error()
	case errors.As(err, &rejected):
		return http.StatusPaymentRequired, rejected.Error()
	case errors.As(err, &unavail):
		return http.StatusServiceUnavailable, "order store unavailable"
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusServiceUnavailable, catalog.ErrUnavailable.Error()
	case errors.Is(err, payment.ErrUnavailable):
		return http.StatusServiceUnavailable, payment.ErrUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail writes err as a JSON error response. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Int("status", code), zap.Error(err))
	}
	writeError(w, code, msg)
}
