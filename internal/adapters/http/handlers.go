package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calendo/core/internal/domain/entities"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// todoHTTPError maps service errors onto HTTP status codes. The API only
// answers 404 or 500; rejected input is a 500 that keeps its message. The
// original error is kept as Internal so the error handler can log it.
func todoHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrTodoNotFound):
		return echo.NewHTTPError(http.StatusNotFound, entities.ErrTodoNotFound.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrInvalidTodo):
		return invalidRequest(err.Error(), err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
	}
}

// invalidRequest reports a body that failed binding or validation
func invalidRequest(msg string, err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, msg).SetInternal(err)
}
