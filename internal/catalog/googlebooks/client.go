// Package googlebooks adapts the Google Books volumes API to catalog.Searcher.
package googlebooks

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/catalog"
)

// DefaultBaseURL is the public volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// MaxResults is the page size requested from the API.
const MaxResults = 40

var _ catalog.Searcher = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries Google Books through a circuit breaker. Concurrent lookups
// of the same volume share one upstream request.
type Client struct {
	http    *resty.Client
	apiKey  string
	breaker *gobreaker.CircuitBreaker
	flight  singleflight.Group
}

// New returns a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetRetryCount(0),
		apiKey: cfg.APIKey,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "googlebooks",
			MaxRequests: 3,
			Interval:    15 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, catalog.ErrNotFound)
			},
		}),
	}
}

// Search implements catalog.Searcher.
func (c *Client) Search(ctx context.Context, query string, startIndex int) (*catalog.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return &catalog.SearchResult{}, nil
	}
	if startIndex < 0 {
		startIndex = 0
	}

	params := map[string]string{
		"q":          query,
		"maxResults": strconv.Itoa(MaxResults),
		"startIndex": strconv.Itoa(startIndex),
	}
	var page volumesPage
	if err := c.do(ctx, "", params, &page); err != nil {
		return nil, errors.Wrap(err, "search volumes")
	}

	res := &catalog.SearchResult{
		Books:      make([]catalog.Book, 0, len(page.Items)),
		TotalItems: page.TotalItems,
	}
	for _, v := range page.Items {
		res.Books = append(res.Books, v.book())
	}
	return res, nil
}

// Get implements catalog.Searcher.
func (c *Client) Get(ctx context.Context, id string) (*catalog.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, catalog.ErrNotFound
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		var vol volume
		if err := c.do(ctx, id, nil, &vol); err != nil {
			return nil, err
		}
		b := vol.book()
		return &b, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get volume %q", id)
	}
	b := *v.(*catalog.Book)
	return &b, nil
}

// do fetches the volumes collection, or the single volume id when id is set.
// The id is sent as an escaped path parameter.
func (c *Client) do(ctx context.Context, id string, params map[string]string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		req := c.http.R().SetContext(ctx).SetQueryParams(params)
		if c.apiKey != "" {
			req.SetQueryParam("key", c.apiKey)
		}
		path := ""
		if id != "" {
			path = "/{id}"
			req.SetPathParam("id", id)
		}
		resp, err := req.Get(path)
		if err != nil {
			return nil, errors.Wrapf(catalog.ErrUnavailable, "request: %v", err)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return nil, catalog.ErrNotFound
		case code == http.StatusBadRequest && id != "":
			// Malformed volume ids are reported as 400.
			return nil, catalog.ErrNotFound
		case code != http.StatusOK:
			return nil, errors.Wrapf(catalog.ErrUnavailable, "status %d", code)
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, errors.Wrap(err, "decode response")
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		zctx.From(ctx).Warn("Catalog circuit open", zap.Error(err))
		return errors.Wrapf(catalog.ErrUnavailable, "circuit %s", c.breaker.State())
	}
	return err
}

type volumesPage struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Description         string   `json:"description"`
		Categories          []string `json:"categories"`
		PublishedDate       string   `json:"publishedDate"`
		Publisher           string   `json:"publisher"`
		PageCount           int      `json:"pageCount"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
			Medium         string `json:"medium"`
			Large          string `json:"large"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
	SaleInfo struct {
		ListPrice *struct {
			Amount       decimal.Decimal `json:"amount"`
			CurrencyCode string          `json:"currencyCode"`
		} `json:"listPrice"`
	} `json:"saleInfo"`
}

func (v volume) book() catalog.Book {
	info := v.VolumeInfo
	b := catalog.Book{
		ID:            v.ID,
		Title:         info.Title,
		Authors:       info.Authors,
		Description:   info.Description,
		Categories:    info.Categories,
		PublishedDate: info.PublishedDate,
		Publisher:     info.Publisher,
		PageCount:     info.PageCount,
		Currency:      cart.DefaultCurrency,
	}
	if b.Title == "" {
		b.Title = catalog.UnknownTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{catalog.UnknownAuthor}
	}

	links := info.ImageLinks
	b.Thumbnail = catalog.NormalizeThumbnail(firstNonEmpty(links.Large, links.Medium, links.Thumbnail, links.SmallThumbnail))

	for _, want := range []string{"ISBN_13", "ISBN_10"} {
		for _, id := range info.IndustryIdentifiers {
			if id.Type == want && b.ISBN == "" {
				b.ISBN = id.Identifier
			}
		}
	}

	if lp := v.SaleInfo.ListPrice; lp != nil && lp.Amount.IsPositive() {
		b.Price = lp.Amount
		if lp.CurrencyCode != "" {
			b.Currency = lp.CurrencyCode
		}
	} else {
		b.Price = catalog.GeneratePrice(info.PageCount, info.Categories)
	}
	return b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
