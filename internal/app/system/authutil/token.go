// internal/app/system/authutil/token.go
package authutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenExpiry is the fixed session window for issued tokens.
const DefaultTokenExpiry = 7 * 24 * time.Hour

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrEmptySubject  = errors.New("token has empty subject")
)

// TokenIssuer signs HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for the given secret. A zero expiry selects
// DefaultTokenExpiry.
func NewTokenIssuer(secret, issuer string, expiry time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token whose subject is userID.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptySubject
	}
	now := t.now()
	claims := &jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    t.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
