package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/bookie/internal/domain/catalog"
)

func (h *Handler) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := 0
	if raw := q.Get("startIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, r, badRequest("startIndex must be a non-negative integer"))
			return
		}
		start = n
	}

	res, err := h.catalog.Search(r.Context(), catalog.SubjectQuery(q.Get("q"), q.Get("subject")), start)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("books", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, b := range res.Books {
						encodeBook(e, b)
					}
				})
			})
			e.Field("totalItems", func(e *jx.Encoder) { e.Int(res.TotalItems) })
		})
	})
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeBook(e, *b) })
}
