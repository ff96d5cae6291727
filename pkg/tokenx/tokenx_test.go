package tokenx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/tokenx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, claims tokenx.Claims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestPeek(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	raw := mint(t, tokenx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: "MODERATOR",
		Type: tokenx.TypeAccess,
	})

	c, err := tokenx.Peek(raw)
	require.NoError(t, err)
	require.Equal(t, "42", c.Subject)
	require.Equal(t, "MODERATOR", c.Role)
	require.Equal(t, tokenx.TypeAccess, c.Type)

	got, ok := tokenx.ExpiresAt(raw)
	require.True(t, ok)
	require.True(t, exp.Equal(got))
}

func TestPeekOpaque(t *testing.T) {
	t.Parallel()

	_, err := tokenx.Peek("opaque-token")
	require.ErrorIs(t, err, tokenx.ErrNotJWT)

	_, ok := tokenx.ExpiresAt("opaque-token")
	require.False(t, ok)
}

func TestRedact(t *testing.T) {
	t.Parallel()

	require.Equal(t, "***", tokenx.Redact("abc"))
	require.Equal(t, "eyJhbG***", tokenx.Redact("eyJhbGciOiJIUzI1NiJ9.payload.sig"))
}
