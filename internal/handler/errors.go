package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"thegrid/internal/board"
	"thegrid/internal/calendar"
	"thegrid/internal/logger"
	"thegrid/internal/model"
	"thegrid/internal/repository"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, calendar.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrFormClosed), errors.Is(err, board.ErrSaveInProgress):
		return http.StatusConflict
	case errors.Is(err, repository.ErrStoreRejected), errors.Is(err, repository.ErrInvalidOrder),
		errors.Is(err, calendar.ErrInvalidEvent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, calendar.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, calendar.ErrCalendarUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, repository.ErrStoreUnavailable), errors.Is(err, calendar.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorLog(c.Request.Context(), "%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
