package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/middleware"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

// ScreamHandler handles HTTP requests related to screams
type ScreamHandler struct {
	screamRepository  repositories.ScreamRepository
	commentRepository repositories.CommentRepository
	cache             cache.ScreamCache
	logger            *slog.Logger
}

// NewScreamHandler creates a new ScreamHandler
func NewScreamHandler(screamRepo repositories.ScreamRepository, commentRepo repositories.CommentRepository, screamCache cache.ScreamCache, logger *slog.Logger) *ScreamHandler {
	return &ScreamHandler{
		screamRepository:  screamRepo,
		commentRepository: commentRepo,
		cache:             screamCache,
		logger:            logger,
	}
}

// RegisterScreamRoutes registers scream routes
func (h *ScreamHandler) RegisterScreamRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/screams", h.GetScreams)
	g.POST("/scream", h.PostScream, auth)
	g.GET("/scream/:screamId", h.GetScream)
	g.DELETE("/scream/:screamId", h.DeleteScream, auth)
}

// GetScreams lists every scream, newest first, through the cache
func (h *ScreamHandler) GetScreams(c echo.Context) error {
	ctx := c.Request().Context()

	screams, err := h.cache.GetRecent(ctx)
	if err == nil {
		return c.JSON(http.StatusOK, screams)
	}
	if !errors.Is(err, cache.ErrMiss) {
		h.logger.Warn("read scream cache", "error", err)
	}

	screams, err = h.screamRepository.GetScreams(ctx)
	if err != nil {
		return models.NewStoreError(err)
	}
	if err := h.cache.SetRecent(ctx, screams); err != nil {
		h.logger.Warn("fill scream cache", "error", err)
	}
	return c.JSON(http.StatusOK, screams)
}

// PostScream creates a scream owned by the caller
func (h *ScreamHandler) PostScream(c echo.Context) error {
	var req models.CreateScreamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	scream := &models.Scream{
		Body:       req.Body,
		UserHandle: middleware.Handle(c),
		UserImage:  middleware.ImageURL(c),
		CreatedAt:  models.Timestamp(time.Now()),
	}
	if err := h.screamRepository.CreateScream(c.Request().Context(), scream); err != nil {
		return models.NewStoreError(err)
	}
	h.invalidate(c.Request().Context())

	return c.JSON(http.StatusCreated, scream)
}

// GetScream returns a scream with its comments, newest first
func (h *ScreamHandler) GetScream(c echo.Context) error {
	ctx := c.Request().Context()
	scream, err := findScream(ctx, h.screamRepository, c.Param("screamId"))
	if err != nil {
		return err
	}

	comments, err := h.commentRepository.GetCommentsByScreamID(ctx, scream.ScreamID)
	if err != nil {
		return models.NewStoreError(err)
	}
	return c.JSON(http.StatusOK, models.ScreamDetail{Scream: *scream, Comments: comments})
}

// DeleteScream deletes one of the caller's screams. Its comments, likes and
// notifications go with it in the delete reaction.
func (h *ScreamHandler) DeleteScream(c echo.Context) error {
	ctx := c.Request().Context()
	scream, err := findScream(ctx, h.screamRepository, c.Param("screamId"))
	if err != nil {
		return err
	}
	if scream.UserHandle != middleware.Handle(c) {
		return models.NewForbiddenError("Unauthorized")
	}

	if err := h.screamRepository.DeleteScream(ctx, scream.ScreamID); err != nil {
		return models.NewStoreError(err)
	}
	h.invalidate(ctx)

	return c.JSON(http.StatusOK, echo.Map{"message": "Scream deleted successfully"})
}

func (h *ScreamHandler) invalidate(ctx context.Context) {
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate scream cache", "error", err)
	}
}

// findScream loads a scream or returns the 404 for it
func findScream(ctx context.Context, repo repositories.ScreamRepository, id string) (*models.Scream, error) {
	scream, err := repo.GetScreamByID(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, models.NewNotFoundError("Scream")
	}
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return scream, nil
}
