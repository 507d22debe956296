// Package catalog describes purchasable books and the port used to look
// them up.
package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookie/internal/domain/cart"
)

// Defaults applied when the upstream catalog omits a field.
const (
	UnknownTitle     = "Unknown Title"
	UnknownAuthor    = "Unknown Author"
	PlaceholderCover = "https://placehold.co/400x600/2563EB/FFFFFF?text=No+Cover"
	DefaultPageCount = 200
)

var (
	// ErrNotFound is returned when the catalog has no book with the given id.
	ErrNotFound = errors.New("book not found")
	// ErrUnavailable is returned when the upstream catalog cannot be reached.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Book is a catalog entry as presented to shoppers.
type Book struct {
	ID            string
	Title         string
	Authors       []string
	Description   string
	Thumbnail     string
	Categories    []string
	PublishedDate string
	Publisher     string
	PageCount     int
	ISBN          string
	Price         decimal.Decimal
	Currency      string
}

// Author returns the first listed author.
func (b Book) Author() string {
	if len(b.Authors) == 0 {
		return UnknownAuthor
	}
	return b.Authors[0]
}

// CartItem converts the book into a cart line descriptor.
func (b Book) CartItem() cart.Item {
	return cart.Item{
		ID:        b.ID,
		Title:     b.Title,
		Creator:   b.Author(),
		Thumbnail: b.Thumbnail,
		Price:     b.Price,
		Currency:  b.Currency,
	}
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Books      []Book
	TotalItems int
}

// Searcher looks up books in a remote catalog.
type Searcher interface {
	Search(ctx context.Context, query string, startIndex int) (*SearchResult, error)
	Get(ctx context.Context, id string) (*Book, error)
}

var premiumCategories = []string{"Business", "Technology", "Science", "Medical"}

// GeneratePrice derives a stable price for books without a list price. Longer
// books cost more, premium categories cost half again as much, and the
// result always ends in .99.
func GeneratePrice(pageCount int, categories []string) decimal.Decimal {
	if pageCount <= 0 {
		pageCount = DefaultPageCount
	}

	var base decimal.Decimal
	switch {
	case pageCount > 500:
		base = decimal.RequireFromString("24.99")
	case pageCount > 300:
		base = decimal.RequireFromString("19.99")
	case pageCount > 200:
		base = decimal.RequireFromString("14.99")
	default:
		base = decimal.RequireFromString("9.99")
	}

	if isPremium(categories) {
		base = base.Mul(decimal.RequireFromString("1.5"))
	}
	return base.Floor().Add(decimal.RequireFromString("0.99"))
}

func isPremium(categories []string) bool {
	for _, c := range categories {
		for _, p := range premiumCategories {
			if strings.Contains(c, p) {
				return true
			}
		}
	}
	return false
}

// NormalizeThumbnail upgrades a cover URL to https at a larger zoom level and
// strips the page-curl effect. An empty URL yields PlaceholderCover.
func NormalizeThumbnail(url string) string {
	if url == "" {
		return PlaceholderCover
	}
	url = strings.Replace(url, "http://", "https://", 1)
	url = strings.Replace(url, "zoom=1", "zoom=2", 1)
	return strings.ReplaceAll(url, "&edge=curl", "")
}

// SubjectQuery narrows query to a category using the search engine's
// subject: qualifier. Multi-word subjects are quoted.
func SubjectQuery(query, subject string) string {
	query, subject = strings.TrimSpace(query), strings.TrimSpace(subject)
	if subject == "" {
		return query
	}
	if strings.ContainsAny(subject, " \t") {
		subject = `"` + strings.ReplaceAll(subject, `"`, "") + `"`
	}
	if query == "" {
		return "subject:" + subject
	}
	return query + " subject:" + subject
}
