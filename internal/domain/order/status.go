package order

import (
	"github.com/go-faster/errors"
)

// Status is a position in the fulfilment pipeline
// pending → confirmed → shipped → delivered.
type Status uint8

const (
	// StatusPending is the initial status of every order.
	StatusPending Status = iota + 1
	// StatusConfirmed means staff accepted the order.
	StatusConfirmed
	// StatusShipped means the parcel left the warehouse.
	StatusShipped
	// StatusDelivered is terminal.
	StatusDelivered
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
	StatusShipped:   "shipped",
	StatusDelivered: "delivered",
}

// successor is the transition table. A status maps to the only status it may
// advance to; delivered has no entry.
var successor = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusShipped,
	StatusShipped:   StatusDelivered,
}

// Statuses lists all statuses in pipeline order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered}
}

// ParseStatus parses the lowercase status name.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, errors.Errorf("unknown status %q", s)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the pipeline statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no further transition exists.
func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// Next returns the immediate successor of s. Delivered returns itself and
// false.
func (s Status) Next() (Status, bool) {
	next, ok := successor[s]
	if !ok {
		return s, false
	}
	return next, true
}

// CanAdvance reports whether to is the immediate successor of from.
func CanAdvance(from, to Status) bool {
	next, ok := successor[from]
	return ok && next == to
}
