package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/identity"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

// Context keys set for authenticated requests
const (
	UIDKey      = "uid"
	HandleKey   = "handle"
	ImageURLKey = "imageUrl"
)

// Auth verifies the bearer token and resolves the caller to their user
// document. Any failure is a 403.
func Auth(provider identity.Provider, users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return models.NewForbiddenError("Unauthorized")
			}

			ctx := c.Request().Context()
			uid, err := provider.Verify(ctx, token)
			if err != nil {
				return &models.AppError{
					Code:    models.CodeForbidden,
					Status:  http.StatusForbidden,
					Message: "Unauthorized",
					Err:     err,
				}
			}

			user, err := users.GetUserByUID(ctx, uid)
			if errors.Is(err, docstore.ErrNotFound) {
				return models.NewForbiddenError("Unauthorized")
			}
			if err != nil {
				return models.NewStoreError(err)
			}

			c.Set(UIDKey, uid)
			c.Set(HandleKey, user.Handle)
			c.Set(ImageURLKey, user.ImageURL)
			return next(c)
		}
	}
}

// Handle returns the authenticated caller's handle
func Handle(c echo.Context) string {
	h, _ := c.Get(HandleKey).(string)
	return h
}

// ImageURL returns the authenticated caller's image URL
func ImageURL(c echo.Context) string {
	u, _ := c.Get(ImageURLKey).(string)
	return u
}
