package order

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Validate checks that every postal field is present and the email is well
// formed.
func (a Address) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", a.Name},
		{"email", a.Email},
		{"address", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}
	if !ValidEmail(strings.TrimSpace(a.Email)) {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	return nil
}

// ValidateItems checks that items can form an order: ids present, positive
// quantities, non-negative prices and a single currency.
func ValidateItems(items []LineItem) error {
	_, err := validateItems(items)
	return err
}

// validateItems checks quantities and returns the common currency.
func validateItems(items []LineItem) (string, error) {
	currency := ""
	for _, it := range items {
		if it.ItemID == "" {
			return "", &ValidationError{Field: "items", Reason: "item id required"}
		}
		if it.Quantity < 1 {
			return "", &ValidationError{Field: "items", Reason: "quantity must be greater than 0 for item " + it.ItemID}
		}
		if it.UnitPrice.IsNegative() {
			return "", &ValidationError{Field: "items", Reason: "negative price for item " + it.ItemID}
		}
		switch {
		case currency == "":
			currency = it.Currency
		case it.Currency != "" && it.Currency != currency:
			return "", &ValidationError{Field: "items", Reason: "mixed currencies"}
		}
	}
	return currency, nil
}
