package handlers

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/models"
)

const (
	// EventTokenHeader carries the shared secret of the platform push
	EventTokenHeader = "X-Event-Token"
	maxEventSize     = 1 << 20
)

// EventsHandler receives document change events pushed by Firestore and
// runs them through the change reactions
type EventsHandler struct {
	handler events.Handler
	token   string
	logger  *slog.Logger
}

// NewEventsHandler creates a new EventsHandler. An empty token refuses every
// caller.
func NewEventsHandler(handler events.Handler, token string, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{handler: handler, token: token, logger: logger}
}

func (h *EventsHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events/firestore", h.FirestoreEvent)
}

// FirestoreEvent decodes one typed-value document event and handles it
// before answering 204
func (h *EventsHandler) FirestoreEvent(c echo.Context) error {
	given := c.Request().Header.Get(EventTokenHeader)
	if h.token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) != 1 {
		return models.NewForbiddenError("Unauthorized")
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEventSize+1))
	if err != nil {
		return models.NewBadRequestError("Invalid event payload")
	}
	if len(payload) > maxEventSize {
		return models.NewBadRequestError("Event payload too large")
	}

	change, err := events.DecodeFirestoreEvent(payload)
	if err != nil {
		h.logger.Warn("rejected firestore event", "error", err)
		return models.NewBadRequestError("Invalid event payload")
	}

	if err := h.handler.Handle(c.Request().Context(), change); err != nil {
		return models.NewStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
