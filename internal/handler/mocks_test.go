package handler_test

import (
	"context"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"thegrid/internal/board"
	"thegrid/internal/calendar"
	"thegrid/internal/handler"
	"thegrid/internal/model"
)

type MockBoard struct {
	mock.Mock
}

func (m *MockBoard) View() board.View {
	return m.Called().Get(0).(board.View)
}

func (m *MockBoard) Watch() (<-chan board.View, func()) {
	args := m.Called()
	return args.Get(0).(<-chan board.View), args.Get(1).(func())
}

func (m *MockBoard) FetchAll(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockBoard) OpenCreateForm(context string) error {
	return m.Called(context).Error(0)
}

func (m *MockBoard) UpdateDraftField(field, value string) error {
	return m.Called(field, value).Error(0)
}

func (m *MockBoard) Save(ctx context.Context) (board.SaveResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(board.SaveResult), args.Error(1)
}

func (m *MockBoard) Cancel() error {
	return m.Called().Error(0)
}

func (m *MockBoard) ToggleComplete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBoard) SelectTask(id string) (model.Task, error) {
	args := m.Called(id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBoard) CloseDetail() {
	m.Called()
}

func (m *MockBoard) SignIn() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type MockSession struct {
	mock.Mock
}

func (m *MockSession) State() calendar.State {
	return m.Called().Get(0).(calendar.State)
}

func (m *MockSession) CompleteSignIn(ctx context.Context, state, code string) error {
	return m.Called(ctx, state, code).Error(0)
}

func (m *MockSession) SignOut() error {
	return m.Called().Error(0)
}

func setupTest() (*gin.Engine, *MockBoard, *MockSession) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockBoard := new(MockBoard)
	mockSession := new(MockSession)

	bh := handler.NewBoardHandler(mockBoard)
	ch := handler.NewCalendarHandler(mockSession)

	r.GET("/healthz", bh.Health)
	r.GET("/board", bh.GetBoard)
	r.GET("/board/stream", bh.Stream)
	r.POST("/board/draft", bh.OpenForm)
	r.PATCH("/board/draft", bh.UpdateDraft)
	r.POST("/board/draft/save", bh.SaveDraft)
	r.DELETE("/board/draft", bh.CancelDraft)
	r.DELETE("/board/selection", bh.CloseDetail)
	r.GET("/tasks", bh.ListTasks)
	r.GET("/tasks/:id", bh.GetTask)
	r.POST("/tasks/:id/toggle", bh.ToggleComplete)
	r.POST("/calendar/signin", bh.SignIn)
	r.GET("/calendar/callback", ch.Callback)
	r.GET("/calendar/status", ch.Status)
	r.POST("/calendar/signout", ch.SignOut)

	return r, mockBoard, mockSession
}

// closeNotifyingRecorder lets gin's Stream run against a recorder.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyingRecorder() *closeNotifyingRecorder {
	return &closeNotifyingRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}
