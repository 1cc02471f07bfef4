// Package auth covers password hashing, bearer tokens and the gin
// middleware that turns a token back into a caller identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/Skufu/healthrec/internal/models"
	"github.com/Skufu/healthrec/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *Hasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against on unknown usernames so a miss costs the
// same bcrypt work as a wrong password.
func (h *Hasher) dummyHash() []byte {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("healthrec-unknown-user"), h.cost)
	})
	return h.dummy
}

type UserFinder interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Authenticate returns ErrInvalidCredentials for both an unknown user and a
// wrong password.
func (h *Hasher) Authenticate(ctx context.Context, users UserFinder, username, password string) (*models.User, error) {
	u, err := users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(h.dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !h.Verify(u.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
