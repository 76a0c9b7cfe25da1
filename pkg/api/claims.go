package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims holds the claims the backend embeds in its access
// tokens. They are decoded without signature verification and used
// only to display session details (expiry, token id) to the user;
// authorization decisions always belong to the server.
type AccessClaims struct {
	// UserID is the numeric id of the token's subject.
	UserID int `json:"user_id"`
	// TokenType distinguishes access from refresh tokens.
	TokenType string `json:"token_type"`

	jwt.RegisteredClaims
}

// ExpiresAt returns the token expiry, zero when the claim is absent.
func (c *AccessClaims) ExpiresAt() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// TimeLeft returns the remaining lifetime, negative once expired and
// zero when the token carries no expiry.
func (c *AccessClaims) TimeLeft() time.Duration {
	exp := c.ExpiresAt()
	if exp.IsZero() {
		return 0
	}
	return time.Until(exp)
}

// PeekClaims decodes a token's claims without verifying its signature.
// The client holds no signing keys, so this is strictly informational.
func PeekClaims(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}
	return claims, nil
}
