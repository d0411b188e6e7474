package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/lmsworks/member-service/internal/domain"
)

// BcryptHasher implements member.PasswordHasher and authn.PasswordChecker.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost for costs bcrypt rejects.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", domain.ErrWeakPassword("longer than 72 bytes")
	case err != nil:
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns nil on a match, invalid_credentials on a mismatch and
// hash_failed when the stored hash is unusable.
func (h *BcryptHasher) Compare(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrInvalidCredentials()
	default:
		return domain.ErrHashFailed(err)
	}
}

// DummyHash is compared against when the login id is unknown, so that path
// costs as much as a real check.
func (h *BcryptHasher) DummyHash() (string, error) {
	return h.Hash("member-service/dummy-password")
}
