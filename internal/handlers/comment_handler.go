package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/middleware"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	screamRepository  repositories.ScreamRepository
	cache             cache.ScreamCache
	logger            *slog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, screamRepo repositories.ScreamRepository, screamCache cache.ScreamCache, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		screamRepository:  screamRepo,
		cache:             screamCache,
		logger:            logger,
	}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/scream/:screamId/comment", h.CommentOnScream, auth)
}

// CommentOnScream adds the caller's comment and recounts the scream's comments
func (h *CommentHandler) CommentOnScream(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	scream, err := findScream(ctx, h.screamRepository, c.Param("screamId"))
	if err != nil {
		return err
	}

	comment := &models.Comment{
		Body:       req.Body,
		ScreamID:   scream.ScreamID,
		UserHandle: middleware.Handle(c),
		UserImage:  middleware.ImageURL(c),
		CreatedAt:  models.Timestamp(time.Now()),
	}
	if _, err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return models.NewStoreError(err)
	}

	count, err := h.commentRepository.CountCommentsByScreamID(ctx, scream.ScreamID)
	if err != nil {
		return models.NewStoreError(err)
	}
	if err := h.screamRepository.SetCommentCount(ctx, scream.ScreamID, count); err != nil {
		return models.NewStoreError(err)
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate scream cache", "error", err)
	}

	return c.JSON(http.StatusCreated, comment)
}
