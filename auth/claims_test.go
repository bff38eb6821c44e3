package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "focusflow-api",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "me@example.com",
	})
	raw, err := tok.SignedString([]byte("server-only-secret"))
	require.NoError(t, err)

	claims, err := Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "me@example.com", claims.Email)

	left, ok := claims.ExpiresIn(now)
	require.True(t, ok)
	assert.Equal(t, time.Hour, left)
	assert.False(t, claims.Expired(now))
	assert.True(t, claims.Expired(now.Add(2*time.Hour)))
}

func TestInspectWithoutExpiry(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "Zoe"}).SignedString([]byte("k"))
	require.NoError(t, err)

	claims, err := Inspect(raw)
	require.NoError(t, err)
	_, ok := claims.ExpiresIn(time.Now())
	assert.False(t, ok)
	assert.False(t, claims.Expired(time.Now()))
}

func TestInspectMalformed(t *testing.T) {
	for _, raw := range []string{"", "opaque-token", "a.b"} {
		_, err := Inspect(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, raw)
	}
}
