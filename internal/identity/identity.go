// Package identity issues and verifies the bearer tokens of signed-up users.
// Firebase Authentication is the production provider; the local provider
// keeps bcrypt credentials in the document store and signs its own JWTs.
package identity

import (
	"context"
	"errors"
)

var (
	ErrEmailInUse       = errors.New("email already in use")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidToken     = errors.New("invalid token")
)

// Identity is an authenticated account and a token proving it
type Identity struct {
	UID   string
	Token string
}

// Provider creates accounts, signs them in and verifies their tokens
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	// Verify returns the uid the token was issued to
	Verify(ctx context.Context, token string) (string, error)
}
