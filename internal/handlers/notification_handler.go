package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

// NotificationHandler handles HTTP requests related to notifications
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notifRepo}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/notifications", h.MarkNotificationsRead, auth)
}

// MarkNotificationsRead marks every id in the JSON array body as read in
// one batch. Either all of them are marked or none.
func (h *NotificationHandler) MarkNotificationsRead(c echo.Context) error {
	var req models.MarkReadRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req.IDs); err != nil {
		return models.NewBadRequestError("Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.notificationRepository.MarkAsRead(c.Request().Context(), req.IDs); err != nil {
		return models.NewStoreError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notifications marked read"})
}
