package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseProvider signs users up and in through the Identity Toolkit REST
// API (the Admin SDK cannot check passwords) and verifies ID tokens with the
// Admin SDK.
type FirebaseProvider struct {
	auth    *auth.Client
	toolkit *identitytoolkit.Service
}

// NewFirebaseProvider needs the project's Web API key for the toolkit calls
func NewFirebaseProvider(ctx context.Context, authClient *auth.Client, apiKey string) (*FirebaseProvider, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit client: %w", err)
	}
	return &FirebaseProvider{auth: authClient, toolkit: svc}, nil
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := p.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toolkitError(err)
	}
	if resp.IdToken == "" {
		return p.SignIn(ctx, email, password)
	}
	return &Identity{UID: resp.LocalId, Token: resp.IdToken}, nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toolkitError(err)
	}
	return &Identity{UID: resp.LocalId, Token: resp.IdToken}, nil
}

func (p *FirebaseProvider) Verify(ctx context.Context, token string) (string, error) {
	decoded, err := p.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return decoded.UID, nil
}

// toolkitError maps the toolkit's error codes onto the package errors.
// Codes arrive as the message, sometimes followed by " : detail".
func toolkitError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	codes := []string{gerr.Message}
	for _, item := range gerr.Errors {
		codes = append(codes, item.Message)
	}
	for _, code := range codes {
		code, _, _ = strings.Cut(code, " ")
		switch code {
		case "EMAIL_EXISTS":
			return ErrEmailInUse
		case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
			return ErrWrongCredentials
		}
	}
	return err
}
