// Package store persists duo matches. SQLite keeps matches as JSONB
// documents in libSQL; Redis keeps them as plain string values with a
// sorted index for the dashboard.
package store

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadToken is returned when an owner token does not match the one
// registered for a match.
var ErrBadToken = errors.New("owner token does not match")

// Option customizes a store.
type Option func(*options)

type options struct {
	tokenCost int
}

// WithTokenCost sets the bcrypt cost used to hash owner tokens.
func WithTokenCost(cost int) Option {
	return func(o *options) { o.tokenCost = cost }
}

func buildOptions(opts []Option) options {
	o := options{tokenCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func hashToken(token string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func compareToken(hash, token string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrBadToken
	}
	return nil
}
