// Package tokenx inspects access tokens issued by the Moondance API.
//
// The client never verifies signatures; it only has the token, not the key.
// Claims read here are for display and logging, never for trust decisions.
package tokenx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrNotJWT is returned when a token is not a parseable JWT.
var ErrNotJWT = errors.New("tokenx: not a jwt")

// Claims mirrors what the API puts into its tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the platform role, e.g. "STUDENT".
	Role string `json:"role,omitempty"`

	// Type is "access" or "refresh".
	Type string `json:"type,omitempty"`
}

// Peek decodes the claims of raw without verifying the signature.
func Peek(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the "exp" claim of raw, or false when the token is
// opaque or carries no expiry.
func ExpiresAt(raw string) (time.Time, bool) {
	c, err := Peek(raw)
	if err != nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Redact shortens a token to a prefix that is safe to log.
func Redact(raw string) string {
	const keep = 6
	if len(raw) <= keep {
		return "***"
	}
	return raw[:keep] + "***"
}
