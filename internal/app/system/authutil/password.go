// internal/app/system/authutil/password.go
package authutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost keeps a hash in the tens of milliseconds on commodity hardware.
	DefaultBcryptCost = 10
	// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected, not truncated.
	MaxPasswordBytes = 72
)

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
)

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's allowed range.
// A zero cost selects DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	// The dummy hash lets callers spend the same work on unknown accounts.
	dummy, err := bcrypt.GenerateFromPassword([]byte("strataauth-dummy-password"), cost)
	if err != nil {
		panic("authutil: generate dummy hash: " + err.Error())
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Cost reports the bcrypt work factor in use.
func (h *Hasher) Cost() int { return h.cost }

// ValidatePassword checks the only constraints the hash imposes.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash hashes a password. The password should be validated with ValidatePassword first.
func (h *Hasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check compares a plain-text password with a bcrypt hash.
func (h *Hasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckDummy runs a comparison against an internal hash and always reports false.
// Used when no account matches so both failure paths take similar time.
func (h *Hasher) CheckDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
