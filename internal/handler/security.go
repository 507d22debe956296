package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/bookie/internal/domain/auth"
)

var _ auth.Resolver = (*TokenAuthority)(nil)

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenAuthority issues and verifies HS256 session tokens.
type TokenAuthority struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenAuthority returns a TokenAuthority signing with secret.
func NewTokenAuthority(secret, issuer string) *TokenAuthority {
	return &TokenAuthority{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for sess valid for ttl.
func (a *TokenAuthority) Issue(sess auth.Session, ttl time.Duration) (string, error) {
	now := a.now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: sess.Contact,
		Role:  string(sess.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Resolve implements auth.Resolver.
func (a *TokenAuthority) Resolve(_ context.Context, token string) (auth.Session, error) {
	var c sessionClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if _, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return auth.Session{}, errors.Wrapf(auth.ErrUnauthenticated, "token: %v", err)
	}
	if c.Subject == "" {
		return auth.Session{}, errors.Wrap(auth.ErrUnauthenticated, "token subject required")
	}
	return auth.Session{
		UserID:  c.Subject,
		Contact: c.Email,
		Role:    auth.ParseRole(c.Role),
	}, nil
}

// authenticate resolves an optional bearer token into the request session.
// Requests without credentials continue anonymously; a bad token is
// rejected outright.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.fail(w, r, errors.Wrap(auth.ErrUnauthenticated, "expected bearer token"))
			return
		}
		sess, err := h.sessions.Resolve(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

// requireSession rejects anonymous requests.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated() {
			writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
