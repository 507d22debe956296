package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/catalog"
	"github.com/xenking/bookie/internal/domain/checkout"
	"github.com/xenking/bookie/internal/domain/order"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("request body too large or unreadable")
	}
	return data, nil
}

// decodeObject walks the top-level object of data. An empty body counts as
// an empty object.
func decodeObject(data []byte, field func(d *jx.Decoder, key string) error) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		var (
			br *badRequestError
			ve *order.ValidationError
		)
		switch {
		case errors.As(err, &br):
			return br
		case errors.As(err, &ve):
			return ve
		}
		return badRequest("malformed JSON body")
	}
	return nil
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func strField(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func encodeBook(e *jx.Encoder, b catalog.Book) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", b.ID)
		strField(e, "title", b.Title)
		e.Field("authors", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, a := range b.Authors {
					e.Str(a)
				}
			})
		})
		strField(e, "author", b.Author())
		strField(e, "description", b.Description)
		strField(e, "thumbnail", b.Thumbnail)
		e.Field("categories", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range b.Categories {
					e.Str(c)
				}
			})
		})
		strField(e, "publishedDate", b.PublishedDate)
		strField(e, "publisher", b.Publisher)
		e.Field("pageCount", func(e *jx.Encoder) { e.Int(b.PageCount) })
		strField(e, "isbn", b.ISBN)
		e.Field("price", func(e *jx.Encoder) { money(e, b.Price) })
		strField(e, "currency", b.Currency)
	})
}

func encodeCart(e *jx.Encoder, c cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range c.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "id", it.ID)
						strField(e, "title", it.Title)
						strField(e, "creator", it.Creator)
						strField(e, "thumbnail", it.Thumbnail)
						e.Field("price", func(e *jx.Encoder) { money(e, it.Price) })
						strField(e, "currency", it.Currency)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(c.Count()) })
		e.Field("total", func(e *jx.Encoder) { money(e, c.Total()) })
	})
}

func encodeQuote(e *jx.Encoder, q order.Quote) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { money(e, q.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) { money(e, q.Shipping) })
		e.Field("total", func(e *jx.Encoder) { money(e, q.Total) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", o.ID)
		strField(e, "userId", o.OwnerID)
		strField(e, "userEmail", o.OwnerContact)
		strField(e, "status", o.Status.String())
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "id", it.ItemID)
						strField(e, "title", it.Title)
						strField(e, "creator", it.Creator)
						strField(e, "thumbnail", it.Thumbnail)
						e.Field("price", func(e *jx.Encoder) { money(e, it.UnitPrice) })
						strField(e, "currency", it.Currency)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { money(e, o.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) { money(e, o.Shipping) })
		e.Field("total", func(e *jx.Encoder) { money(e, o.Total) })
		strField(e, "currency", o.Currency)
		e.Field("shippingAddress", func(e *jx.Encoder) {
			a := o.ShippingAddress
			e.Obj(func(e *jx.Encoder) {
				strField(e, "name", a.Name)
				strField(e, "email", a.Email)
				strField(e, "address", a.Line1)
				strField(e, "city", a.City)
				strField(e, "state", a.State)
				strField(e, "zip", a.Zip)
				strField(e, "country", a.Country)
			})
		})
		strField(e, "paymentMethodId", o.PaymentRef)
		strField(e, "createdAt", o.CreatedAt.UTC().Format(time.RFC3339))
		strField(e, "updatedAt", o.UpdatedAt.UTC().Format(time.RFC3339))
	})
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range orders {
					encodeOrder(e, &orders[i])
				}
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(len(orders)) })
	})
}

func encodeSummary(e *jx.Encoder, s *order.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("totalOrders", func(e *jx.Encoder) { e.Int(s.Total) })
		e.Field("byStatus", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, st := range order.Statuses() {
					e.Field(st.String(), func(e *jx.Encoder) { e.Int(s.ByStatus[st]) })
				}
			})
		})
		e.Field("revenue", func(e *jx.Encoder) { money(e, s.Revenue) })
	})
}

type addItemRequest struct {
	BookID   string
	Quantity int
}

func decodeAddItem(data []byte) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "bookId":
			req.BookID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeQuantity(data []byte) (int, error) {
	qty, seen := 0, false
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		var err error
		qty, err = d.Int()
		return err
	})
	if err != nil {
		return 0, err
	}
	if !seen {
		return 0, badRequest("quantity required")
	}
	return qty, nil
}

func decodeCheckout(data []byte) (checkout.Request, error) {
	var req checkout.Request
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		switch key {
		case "shippingAddress":
			return d.Obj(func(d *jx.Decoder, key string) error {
				a := &req.ShippingAddress
				var dst *string
				switch key {
				case "name":
					dst = &a.Name
				case "email":
					dst = &a.Email
				case "address", "line1":
					dst = &a.Line1
				case "city":
					dst = &a.City
				case "state":
					dst = &a.State
				case "zip":
					dst = &a.Zip
				case "country":
					dst = &a.Country
				default:
					return d.Skip()
				}
				v, err := d.Str()
				*dst = strings.TrimSpace(v)
				return err
			})
		case "card":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "token" {
					return d.Skip()
				}
				v, err := d.Str()
				req.Card.Token = v
				return err
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

// decodeStatus reads an optional {"status": "..."} body. ok is false when
// the field is absent or null.
func decodeStatus(data []byte) (st order.Status, ok bool, err error) {
	err = decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		raw, err := d.Str()
		if err != nil {
			return err
		}
		if st, err = order.ParseStatus(strings.ToLower(strings.TrimSpace(raw))); err != nil {
			return &order.ValidationError{Field: "status", Reason: "unknown status " + raw}
		}
		ok = true
		return nil
	})
	return st, ok, err
}
