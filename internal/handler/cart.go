package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/bookie/internal/domain/cart"
)

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, c cart.Cart, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cartFor(r).Cart(r.Context())
	h.writeCart(w, r, c, err)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeAddItem(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.BookID == "" {
		h.fail(w, r, cart.ErrInvalidItem)
		return
	}
	if req.Quantity < 1 || req.Quantity > cart.MaxQuantity {
		h.fail(w, r, cart.ErrInvalidQuantity)
		return
	}

	// Price and title come from the catalog, never from the client.
	book, err := h.catalog.Get(r.Context(), req.BookID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.cartFor(r).AddItem(r.Context(), book.CartItem(), req.Quantity)
	h.writeCart(w, r, c, err)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	qty, err := decodeQuantity(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.cartFor(r).UpdateQuantity(r.Context(), chi.URLParam(r, "id"), qty)
	h.writeCart(w, r, c, err)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cartFor(r).RemoveItem(r.Context(), chi.URLParam(r, "id"))
	h.writeCart(w, r, c, err)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartFor(r).Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) quoteCart(w http.ResponseWriter, r *http.Request) {
	q, err := h.checkout.Quote(r.Context(), h.cartFor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuote(e, q) })
}
