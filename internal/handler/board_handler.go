package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"thegrid/internal/board"
	"thegrid/internal/model"
)

// BoardController is what the board routes drive.
type BoardController interface {
	View() board.View
	Watch() (<-chan board.View, func())
	FetchAll(ctx context.Context) ([]model.Task, error)
	OpenCreateForm(context string) error
	UpdateDraftField(field, value string) error
	Save(ctx context.Context) (board.SaveResult, error)
	Cancel() error
	ToggleComplete(ctx context.Context, id string) error
	SelectTask(id string) (model.Task, error)
	CloseDetail()
	SignIn() (string, error)
}

type BoardHandler struct {
	board BoardController
}

func NewBoardHandler(b BoardController) *BoardHandler {
	return &BoardHandler{board: b}
}

type OpenFormRequest struct {
	Context string `json:"context"`
}

type DraftFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type SaveResponse struct {
	Task    model.Task `json:"task"`
	EventID string     `json:"event_id,omitempty"`
	Warning string     `json:"warning,omitempty"`
}

type SignInResponse struct {
	AuthURL string `json:"auth_url"`
}

type TaskListResponse struct {
	Tasks []model.Task `json:"tasks"`
}

// GetBoard returns the current board view.
// @Summary  Current board
// @Tags     Board
// @Produce  json
// @Success  200 {object} board.View
// @Router   /board [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.View())
}

// Stream pushes a "board" server-sent event whenever the view changes.
// @Summary  Live board
// @Tags     Board
// @Produce  text/event-stream
// @Router   /board/stream [get]
func (h *BoardHandler) Stream(c *gin.Context) {
	views, cancel := h.board.Watch()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case v, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("board", v)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ListTasks reads every task once, newest first.
// @Summary  All tasks
// @Tags     Tasks
// @Produce  json
// @Success  200 {object} TaskListResponse
// @Failure  503 {object} ErrorResponse
// @Router   /tasks [get]
func (h *BoardHandler) ListTasks(c *gin.Context) {
	tasks, err := h.board.FetchAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, TaskListResponse{Tasks: tasks})
}

// OpenForm opens the create form, optionally preset to a column.
// @Summary  Open create form
// @Tags     Draft
// @Accept   json
// @Produce  json
// @Param    request body OpenFormRequest false "column"
// @Success  200 {object} board.View
// @Failure  400 {object} ErrorResponse
// @Router   /board/draft [post]
func (h *BoardHandler) OpenForm(c *gin.Context) {
	var req OpenFormRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
			return
		}
	}
	if err := h.board.OpenCreateForm(req.Context); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.board.View())
}

// UpdateDraft sets one field of the draft.
// @Summary  Edit draft field
// @Tags     Draft
// @Accept   json
// @Produce  json
// @Param    request body DraftFieldRequest true "field and raw value"
// @Success  200 {object} board.View
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /board/draft [patch]
func (h *BoardHandler) UpdateDraft(c *gin.Context) {
	var req DraftFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}
	if err := h.board.UpdateDraftField(req.Field, req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.board.View())
}

// SaveDraft stores the draft and, when possible, mirrors it to the calendar.
// @Summary  Save draft
// @Tags     Draft
// @Produce  json
// @Success  201 {object} SaveResponse
// @Failure  409 {object} ErrorResponse
// @Failure  422 {object} ErrorResponse
// @Failure  503 {object} ErrorResponse
// @Router   /board/draft/save [post]
func (h *BoardHandler) SaveDraft(c *gin.Context) {
	result, err := h.board.Save(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SaveResponse{
		Task:    result.Task,
		EventID: result.EventID,
		Warning: result.Warning,
	})
}

// CancelDraft closes the create form.
// @Summary  Cancel draft
// @Tags     Draft
// @Success  204
// @Failure  409 {object} ErrorResponse
// @Router   /board/draft [delete]
func (h *BoardHandler) CancelDraft(c *gin.Context) {
	if err := h.board.Cancel(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleComplete flips a task's completed flag.
// @Summary  Toggle completed
// @Tags     Tasks
// @Param    id path string true "task id"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /tasks/{id}/toggle [post]
func (h *BoardHandler) ToggleComplete(c *gin.Context) {
	if err := h.board.ToggleComplete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTask selects a task for the detail view.
// @Summary  Task detail
// @Tags     Tasks
// @Produce  json
// @Param    id path string true "task id"
// @Success  200 {object} model.Task
// @Failure  404 {object} ErrorResponse
// @Router   /tasks/{id} [get]
func (h *BoardHandler) GetTask(c *gin.Context) {
	task, err := h.board.SelectTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CloseDetail clears the selection.
// @Summary  Close detail
// @Tags     Tasks
// @Success  204
// @Router   /board/selection [delete]
func (h *BoardHandler) CloseDetail(c *gin.Context) {
	h.board.CloseDetail()
	c.Status(http.StatusNoContent)
}

// SignIn returns the consent URL the user should open.
// @Summary  Start calendar sign-in
// @Tags     Calendar
// @Produce  json
// @Success  200 {object} SignInResponse
// @Failure  503 {object} ErrorResponse
// @Router   /calendar/signin [post]
func (h *BoardHandler) SignIn(c *gin.Context) {
	url, err := h.board.SignIn()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SignInResponse{AuthURL: url})
}

// Health reports liveness and whether the task feed is degraded.
func (h *BoardHandler) Health(c *gin.Context) {
	v := h.board.View()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"degraded":  v.Degraded,
		"signed_in": v.SignedIn,
	})
}
