package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned by Inspect for values that are not JWTs.
var ErrMalformedToken = errors.New("malformed token")

// Claims are the access-token claims the client reads for display. They
// are parsed without verification; only the server can validate a token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Inspect decodes the claims of a JWT access token without verifying its
// signature.
func Inspect(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// ExpiresIn returns the time left before expiry, and false when the token
// carries no exp claim.
func (c *Claims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}

// Expired reports whether the exp claim is in the past.
func (c *Claims) Expired(now time.Time) bool {
	left, ok := c.ExpiresIn(now)
	return ok && left <= 0
}
