package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"thegrid/internal/board"
	"thegrid/internal/calendar"
	"thegrid/internal/handler"
	"thegrid/internal/model"
	"thegrid/internal/repository"
)

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetBoard(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	columns, _ := board.Partition([]model.Task{{ID: "t1", Context: "Leadership", Description: "Plan"}})
	mockBoard.On("View").Return(board.View{Columns: columns, SignedIn: true, CalendarState: "signed_in"})

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodGet, "/board", nil))

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var view board.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	require.Len(t, view.Columns, len(model.Contexts))
	assert.Equal(t, "Leadership", view.Columns[0].Context)
	assert.Equal(t, "Plan", view.Columns[0].Tasks[0].Description)
	assert.True(t, view.SignedIn)
	mockBoard.AssertExpectations(t)
}

func TestOpenForm(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	mockBoard.On("OpenCreateForm", "Finance/Admin").Return(nil)
	draft := model.NewDraft("Finance/Admin")
	mockBoard.On("View").Return(board.View{Draft: &draft})

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/board/draft", handler.OpenFormRequest{Context: "Finance/Admin"}))

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"draft"`)
	mockBoard.AssertExpectations(t)
}

func TestOpenForm_WithoutBody(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("OpenCreateForm", "").Return(nil)
	mockBoard.On("View").Return(board.View{})

	req, _ := http.NewRequest(http.MethodPost, "/board/draft", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	mockBoard.AssertExpectations(t)
}

func TestUpdateDraft_ValidationError(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	mockBoard.On("UpdateDraftField", model.FieldDuration, "20").
		Return(&model.ValidationError{Field: model.FieldDuration, Reason: "must be a positive multiple of 15 minutes"})

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPatch, "/board/draft", handler.DraftFieldRequest{Field: "duration", Value: "20"}))

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "duration")
	mockBoard.AssertExpectations(t)
}

func TestUpdateDraft_MissingField(t *testing.T) {
	router, mockBoard, _ := setupTest()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPatch, "/board/draft", map[string]string{"value": "x"}))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockBoard.AssertNotCalled(t, "UpdateDraftField", mock.Anything, mock.Anything)
}

func TestSaveDraft(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	task := model.Task{ID: "t1", Context: "Sales & Clients", Description: "Client call"}
	mockBoard.On("Save", mock.Anything).Return(board.SaveResult{
		Task:        task,
		CalendarErr: calendar.ErrCalendarUnavailable,
		Warning:     "task saved but calendar sync failed",
	}, nil)

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/board/draft/save", nil))

	// Assert
	assert.Equal(t, http.StatusCreated, resp.Code)

	var body handler.SaveResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "t1", body.Task.ID)
	assert.Equal(t, "task saved but calendar sync failed", body.Warning)
	assert.Empty(t, body.EventID)
}

func TestSaveDraft_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{board.ErrFormClosed, http.StatusConflict},
		{board.ErrSaveInProgress, http.StatusConflict},
		{repository.ErrStoreRejected, http.StatusUnprocessableEntity},
		{fmt.Errorf("create: %w", repository.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router, mockBoard, _ := setupTest()
			mockBoard.On("Save", mock.Anything).Return(board.SaveResult{}, tt.err)

			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/board/draft/save", nil))

			assert.Equal(t, tt.code, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.err.Error())
		})
	}
}

func TestCancelDraft(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("Cancel").Return(nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodDelete, "/board/draft", nil))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	mockBoard.AssertExpectations(t)
}

func TestToggleComplete_NotFound(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	mockBoard.On("ToggleComplete", mock.Anything, "missing").Return(repository.ErrTaskNotFound)

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/tasks/missing/toggle", nil))

	// Assert
	assert.Equal(t, http.StatusNotFound, resp.Code)
	mockBoard.AssertExpectations(t)
}

func TestToggleComplete(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("ToggleComplete", mock.Anything, "t1").Return(nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/tasks/t1/toggle", nil))

	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestListTasks(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	mockBoard.On("FetchAll", mock.Anything).Return(nil, nil).Once()

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodGet, "/tasks", nil))

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"tasks":[]}`, resp.Body.String())
}

func TestGetTaskAndCloseDetail(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	mockBoard.On("SelectTask", "t1").Return(model.Task{ID: "t1", Notes: "agenda"}, nil)
	mockBoard.On("CloseDetail").Return()

	// Act
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, jsonRequest(http.MethodGet, "/tasks/t1", nil))
	closeResp := httptest.NewRecorder()
	router.ServeHTTP(closeResp, jsonRequest(http.MethodDelete, "/board/selection", nil))

	// Assert
	assert.Equal(t, http.StatusOK, getResp.Code)
	assert.Contains(t, getResp.Body.String(), "agenda")
	assert.Equal(t, http.StatusNoContent, closeResp.Code)
	mockBoard.AssertExpectations(t)
}

func TestSignIn(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("SignIn").Return("https://accounts.example/o/oauth2/auth?state=abc", nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/calendar/signin", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var body handler.SignInResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Contains(t, body.AuthURL, "state=abc")
}

func TestSignIn_NotConfigured(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("SignIn").Return("", calendar.ErrNotConfigured)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodPost, "/calendar/signin", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestStream(t *testing.T) {
	// Arrange
	router, mockBoard, _ := setupTest()
	views := make(chan board.View, 1)
	views <- board.View{Degraded: true, LastError: "connection reset"}
	close(views)
	cancelled := false
	mockBoard.On("Watch").Return((<-chan board.View)(views), func() { cancelled = true })

	// Act
	resp := newCloseNotifyingRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodGet, "/board/stream", nil))

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "event:board")
	assert.Contains(t, resp.Body.String(), "connection reset")
	assert.True(t, cancelled)
}

func TestHealth(t *testing.T) {
	router, mockBoard, _ := setupTest()
	mockBoard.On("View").Return(board.View{Degraded: true})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","degraded":true,"signed_in":false}`, resp.Body.String())
}
