package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/bookie/internal/domain/auth"
	"github.com/xenking/bookie/internal/domain/order"
)

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, status int, o *order.Order, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeCheckout(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.checkout.Checkout(r.Context(), auth.FromContext(r.Context()), h.cartFor(r), req)
	h.writeOrder(w, r, http.StatusCreated, o, err)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	h.writeOrder(w, r, http.StatusOK, o, err)
}

// parseFilter reads status, q and limit query parameters.
func parseFilter(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	var f order.Filter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && raw != "all" {
		st, err := order.ParseStatus(strings.ToLower(raw))
		if err != nil {
			return f, &order.ValidationError{Field: "status", Reason: "unknown status " + raw}
		}
		f.Status = st
	}
	f.Search = q.Get("q")
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, badRequest("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

// listOrders serves a filtered listing. A non-empty owner restricts it to
// that user's orders regardless of role.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, owner string) {
	f, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.OwnerID = owner
	orders, err := h.orders.List(r.Context(), auth.FromContext(r.Context()), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// listOwnOrders lists the caller's orders, admins included.
func (h *Handler) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, auth.FromContext(r.Context()).UserID)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	if !auth.FromContext(r.Context()).IsAdmin() {
		h.fail(w, r, order.ErrForbidden)
		return
	}
	h.listOrders(w, r, "")
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.orders.Summary(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, s) })
}

func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	target, ok, err := decodeStatus(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, sess, id := r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")
	var o *order.Order
	if ok {
		o, err = h.orders.Advance(ctx, sess, id, target)
	} else {
		o, err = h.orders.AdvanceNext(ctx, sess, id)
	}
	h.writeOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) overrideOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	target, ok, err := decodeStatus(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, &order.ValidationError{Field: "status", Reason: "required"})
		return
	}
	o, err := h.orders.Override(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), target)
	h.writeOrder(w, r, http.StatusOK, o, err)
}
