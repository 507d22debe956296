package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when an operation requires a signed-in user.
var ErrUnauthenticated = errors.New("authentication required")

// Role is the coarse authorization role resolved by the identity provider.
type Role string

const (
	// RoleCustomer can manage its own cart and orders.
	RoleCustomer Role = "customer"
	// RoleAdmin can additionally list all orders and advance their status.
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw claim value to a Role. Unknown values fall back to
// RoleCustomer so that a malformed claim never grants admin access.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Session identifies the user on whose behalf an operation runs. It is passed
// explicitly into every order operation; there is no ambient current user.
type Session struct {
	UserID  string
	Contact string
	Role    Role
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// Resolver turns a bearer credential into a Session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Session, error)
}

type sessionKey struct{}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx. The zero Session is returned
// when none is present.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
