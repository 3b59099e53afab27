package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/models"
)

// HTTPErrorHandler renders every error as one JSON object: the field map of
// a validation error, or a single message under its key
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var body interface{}

		var appErr *models.AppError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			body = appErr.Body()
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body = echo.Map{"error": fmt.Sprint(httpErr.Message)}
		default:
			body = echo.Map{"error": err.Error()}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method, "route", c.Path(), "status", status, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}

// bindAndValidate decodes the JSON body into req and validates it
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return models.NewBadRequestError("Invalid request payload")
	}
	return c.Validate(req)
}
