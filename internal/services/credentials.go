package services

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and checks passwords with bcrypt.
type Credentials struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{cost: cost}
}

func (c *Credentials) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword never succeeds for a nil or empty hash.
func (c *Credentials) VerifyPassword(password string, hash *string) bool {
	if hash == nil || *hash == "" {
		c.burn(password)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

// burn spends the same time as a real comparison so a missing account or
// password cannot be told apart by latency.
func (c *Credentials) burn(password string) {
	c.dummyOnce.Do(func() {
		c.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), c.cost)
	})
	bcrypt.CompareHashAndPassword(c.dummy, []byte(password))
}
