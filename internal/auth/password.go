package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/basket/internal/domain"
)

const (
	DefaultBcryptCost        = 12
	DefaultMinPasswordLength = 8
)

// Passwords hashes and checks account passwords with bcrypt.
type Passwords struct {
	cost      int
	minLength int
}

// NewPasswords returns a hasher with the given bcrypt cost and minimum
// password length. Zero values select the defaults.
func NewPasswords(cost, minLength int) (*Passwords, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if minLength == 0 {
		minLength = DefaultMinPasswordLength
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	if minLength < 1 {
		return nil, fmt.Errorf("minimum password length must be positive, got %d", minLength)
	}
	return &Passwords{cost: cost, minLength: minLength}, nil
}

// MinLength is the shortest password Hash accepts.
func (p *Passwords) MinLength() int { return p.minLength }

// Hash returns the bcrypt hash of password. Passwords shorter than the
// minimum length fail with an invalid error.
func (p *Passwords) Hash(password string) (string, error) {
	const op = "auth.hash_password"

	if len(password) < p.minLength {
		return "", domain.Errorf(domain.EINVALID, op, "Password must be at least %d characters", p.minLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", domain.Internal(err, op, "failed to hash password")
	}
	return string(hash), nil
}

// Verify checks password against hash. A mismatch is reported as
// domain.ErrInvalidCredentials so login never reveals which part was wrong.
func (p *Passwords) Verify(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrInvalidCredentials
	default:
		return domain.Internal(err, "auth.verify_password", "failed to verify password")
	}
}
