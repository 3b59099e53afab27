package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/anonto42/socialape/backend/internal/docstore"
)

// CredentialsCollection holds one document per account, keyed by the
// lowercased email
const CredentialsCollection = "credentials"

const tokenTTL = 72 * time.Hour

// Claims carried by a local token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider authenticates against bcrypt hashes kept in the store
type LocalProvider struct {
	store  docstore.Store
	secret []byte
	cost   int
	now    func() time.Time
}

// NewLocalProvider creates a LocalProvider. cost is the bcrypt cost;
// zero means bcrypt.DefaultCost.
func NewLocalProvider(store docstore.Store, secret string, cost int) *LocalProvider {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &LocalProvider{store: store, secret: []byte(secret), cost: cost, now: time.Now}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	key := credentialsKey(email)
	_, err := p.store.Get(ctx, CredentialsCollection, key)
	if err == nil {
		return nil, ErrEmailInUse
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	uid := ulid.Make().String()
	if err := p.store.Set(ctx, CredentialsCollection, key, map[string]interface{}{
		"uid":          uid,
		"email":        email,
		"passwordHash": string(hash),
	}); err != nil {
		return nil, err
	}

	return p.issue(uid, email)
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	snap, err := p.store.Get(ctx, CredentialsCollection, credentialsKey(email))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrWrongCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(snap.String("passwordHash")), []byte(password)); err != nil {
		return nil, ErrWrongCredentials
	}
	return p.issue(snap.String("uid"), snap.String("email"))
}

func (p *LocalProvider) Verify(ctx context.Context, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (p *LocalProvider) issue(uid, email string) (*Identity, error) {
	now := p.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Identity{UID: uid, Token: signed}, nil
}

func credentialsKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
