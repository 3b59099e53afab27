package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/blob"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/identity"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

// AuthHandler handles sign-up and login
type AuthHandler struct {
	userRepository repositories.UserRepository
	provider       identity.Provider
	uploader       blob.Uploader
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, provider identity.Provider, uploader blob.Uploader) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		provider:       provider,
		uploader:       uploader,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
}

// Signup creates the auth identity and the user document. The handle is
// checked first so a taken handle never creates an identity.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	_, err := h.userRepository.GetUserByHandle(ctx, req.Handle)
	if err == nil {
		return models.NewConflictError("handle", "This handle is already taken")
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return models.NewStoreError(err)
	}

	id, err := h.provider.SignUp(ctx, req.Email, req.Password)
	if errors.Is(err, identity.ErrEmailInUse) {
		return models.NewAuthError(http.StatusBadRequest, "email", "Email is already in use")
	}
	if err != nil {
		return models.NewStoreError(err)
	}

	user := &models.User{
		Handle:    req.Handle,
		Email:     req.Email,
		CreatedAt: models.Timestamp(time.Now()),
		ImageURL:  h.uploader.PublicURL(blob.DefaultImage),
		UserID:    id.UID,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return models.NewStoreError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"token": id.Token})
}

// Login exchanges credentials for a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := h.provider.SignIn(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrWrongCredentials) {
		return models.NewAuthError(http.StatusForbidden, "general", "Wrong credentials, please try again")
	}
	if err != nil {
		return models.NewStoreError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"token": id.Token})
}
