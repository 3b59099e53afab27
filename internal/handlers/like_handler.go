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

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository   repositories.LikeRepository
	screamRepository repositories.ScreamRepository
	cache            cache.ScreamCache
	logger           *slog.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, screamRepo repositories.ScreamRepository, screamCache cache.ScreamCache, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{
		likeRepository:   likeRepo,
		screamRepository: screamRepo,
		cache:            screamCache,
		logger:           logger,
	}
}

// RegisterLikeRoutes registers like routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/scream/:screamId/like", h.LikeScream, auth)
	g.GET("/scream/:screamId/unlike", h.UnlikeScream, auth)
}

// LikeScream records the caller's like once per scream
func (h *LikeHandler) LikeScream(c echo.Context) error {
	ctx := c.Request().Context()
	handle := middleware.Handle(c)

	scream, err := findScream(ctx, h.screamRepository, c.Param("screamId"))
	if err != nil {
		return err
	}

	_, err = h.likeRepository.GetLike(ctx, scream.ScreamID, handle)
	if err == nil {
		return models.NewBadRequestError("Scream already liked")
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return models.NewStoreError(err)
	}

	like := &models.Like{
		UserHandle: handle,
		ScreamID:   scream.ScreamID,
		CreatedAt:  models.Timestamp(time.Now()),
	}
	if err := h.likeRepository.CreateLike(ctx, like); err != nil {
		return models.NewStoreError(err)
	}

	if err := h.recount(ctx, scream); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scream)
}

// UnlikeScream removes the caller's like
func (h *LikeHandler) UnlikeScream(c echo.Context) error {
	ctx := c.Request().Context()
	handle := middleware.Handle(c)

	scream, err := findScream(ctx, h.screamRepository, c.Param("screamId"))
	if err != nil {
		return err
	}

	like, err := h.likeRepository.GetLike(ctx, scream.ScreamID, handle)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.NewBadRequestError("Scream not liked")
	}
	if err != nil {
		return models.NewStoreError(err)
	}

	if err := h.likeRepository.DeleteLike(ctx, like.ID); err != nil {
		return models.NewStoreError(err)
	}

	if err := h.recount(ctx, scream); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scream)
}

// recount sets likeCount from the likes that exist now
func (h *LikeHandler) recount(ctx context.Context, scream *models.Scream) error {
	count, err := h.likeRepository.CountLikesByScreamID(ctx, scream.ScreamID)
	if err != nil {
		return models.NewStoreError(err)
	}
	if err := h.screamRepository.SetLikeCount(ctx, scream.ScreamID, count); err != nil {
		return models.NewStoreError(err)
	}
	scream.LikeCount = count

	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate scream cache", "error", err)
	}
	return nil
}
