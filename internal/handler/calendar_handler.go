package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"thegrid/internal/calendar"
	"thegrid/internal/logger"
)

// CalendarSession is the sign-in side of the calendar service.
type CalendarSession interface {
	State() calendar.State
	CompleteSignIn(ctx context.Context, state, code string) error
	SignOut() error
}

type CalendarHandler struct {
	session CalendarSession
}

func NewCalendarHandler(session CalendarSession) *CalendarHandler {
	return &CalendarHandler{session: session}
}

type StatusResponse struct {
	State    string `json:"state"`
	SignedIn bool   `json:"signed_in"`
}

func (h *CalendarHandler) status() StatusResponse {
	s := h.session.State()
	return StatusResponse{State: s.String(), SignedIn: s == calendar.StateSignedIn}
}

// Callback completes sign-in from the OAuth redirect.
// @Summary  OAuth redirect target
// @Tags     Calendar
// @Produce  json
// @Param    state query string true "sign-in state"
// @Param    code  query string true "authorization code"
// @Success  200 {object} StatusResponse
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Router   /calendar/callback [get]
func (h *CalendarHandler) Callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		logger.WarnLog(c.Request.Context(), "calendar consent declined: %s", reason)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sign-in declined: " + reason})
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "state and code are required"})
		return
	}

	if err := h.session.CompleteSignIn(c.Request.Context(), state, code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.status())
}

// Status reports the calendar sign-in state.
// @Summary  Calendar sign-in state
// @Tags     Calendar
// @Produce  json
// @Success  200 {object} StatusResponse
// @Router   /calendar/status [get]
func (h *CalendarHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// SignOut forgets the stored calendar token.
// @Summary  Calendar sign-out
// @Tags     Calendar
// @Produce  json
// @Success  200 {object} StatusResponse
// @Router   /calendar/signout [post]
func (h *CalendarHandler) SignOut(c *gin.Context) {
	if err := h.session.SignOut(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.status())
}
