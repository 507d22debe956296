// Package handler exposes the storefront over HTTP: catalog browsing, the
// session cart, checkout and order administration.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/bookie/internal/domain/auth"
	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/catalog"
	"github.com/xenking/bookie/internal/domain/checkout"
	"github.com/xenking/bookie/internal/domain/order"
)

// Deps are the domain services behind the HTTP API.
type Deps struct {
	Catalog  catalog.Searcher
	Carts    cart.Storage
	Notifier cart.Notifier
	Checkout *checkout.Service
	Orders   *order.Service
	Sessions auth.Resolver
}

// Handler serves the /api routes.
type Handler struct {
	catalog  catalog.Searcher
	carts    cart.Storage
	notifier cart.Notifier
	checkout *checkout.Service
	orders   *order.Service
	sessions auth.Resolver
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:  deps.Catalog,
		carts:    deps.Carts,
		notifier: deps.Notifier,
		checkout: deps.Checkout,
		orders:   deps.Orders,
		sessions: deps.Sessions,
	}
}

// Routes mounts the API under /api on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/books", h.searchBooks)
		r.Get("/books/{id}", h.getBook)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/cart", h.getCart)
			r.Delete("/cart", h.clearCart)
			r.Get("/cart/quote", h.quoteCart)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items/{id}", h.updateCartItem)
			r.Delete("/cart/items/{id}", h.removeCartItem)

			r.Post("/checkout", h.placeOrder)

			r.Get("/orders", h.listOwnOrders)
			r.Get("/orders/{id}", h.getOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/orders", h.listAllOrders)
				r.Get("/summary", h.summary)
				r.Post("/orders/{id}/advance", h.advanceOrder)
				r.Post("/orders/{id}/override", h.overrideOrder)
			})
		})
	})
}

// NewRouter returns a chi router serving only the API routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func (h *Handler) cartFor(r *http.Request) *cart.Store {
	sess := auth.FromContext(r.Context())
	return cart.NewStore(h.carts, cart.Key(sess.UserID), h.notifier)
}
