package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	// ErrEmptyCart is returned when an order is requested without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when no order with the given id is visible to
	// the caller.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when a non-admin session calls an admin
	// operation.
	ErrForbidden = errors.New("admin role required")
)

// ValidationError reports a malformed field of an order request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError reports a status change that is not the immediate
// successor of the current status.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// UnavailableError wraps a failure of the remote order store.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("order store unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// unavailable wraps err unless it is already a domain error.
func unavailable(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
