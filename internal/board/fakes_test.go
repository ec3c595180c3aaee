package board_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"thegrid/internal/calendar"
	"thegrid/internal/model"
	"thegrid/internal/repository"
)

// fakeStore keeps tasks in memory and pushes a snapshot to its subscriber
// after every successful write.
type fakeStore struct {
	mu        sync.Mutex
	tasks     []model.Task
	nextID    int
	creates   int
	updates   int
	createErr error
	updateErr error
	release   chan struct{}
	entered   chan struct{}

	// holdSnapshots stops writes from pushing a snapshot, like a feed
	// that has not caught up yet.
	holdSnapshots bool

	onChange     repository.SnapshotFunc
	onError      repository.ErrorFunc
	subscribes   int
	unsubscribed bool
}

func newFakeStore(tasks ...model.Task) *fakeStore {
	return &fakeStore{tasks: tasks}
}

func (s *fakeStore) emit() {
	s.mu.Lock()
	cb := s.onChange
	snap := append([]model.Task(nil), s.tasks...)
	s.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

func (s *fakeStore) fail(err error) {
	s.mu.Lock()
	cb := s.onError
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *fakeStore) Create(ctx context.Context, task *model.Task) (string, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	s.creates++
	if s.createErr != nil {
		s.mu.Unlock()
		return "", s.createErr
	}
	s.nextID++
	task.ID = fmt.Sprintf("task-%d", s.nextID)
	task.Timestamp = time.Now()
	s.tasks = append([]model.Task{*task}, s.tasks...)
	hold := s.holdSnapshots
	s.mu.Unlock()

	if !hold {
		s.emit()
	}
	return task.ID, nil
}

func (s *fakeStore) Update(_ context.Context, id string, patch model.TaskPatch) error {
	s.mu.Lock()
	s.updates++
	if s.updateErr != nil {
		s.mu.Unlock()
		return s.updateErr
	}
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			patch.Apply(&s.tasks[i])
			found = true
		}
	}
	hold := s.holdSnapshots
	s.mu.Unlock()

	if !found {
		return repository.ErrTaskNotFound
	}
	if !hold {
		s.emit()
	}
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			task := t
			return &task, nil
		}
	}
	return nil, repository.ErrTaskNotFound
}

func (s *fakeStore) FetchAll(_ context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...), nil
}

func (s *fakeStore) Subscribe(_ context.Context, _ repository.Order, onChange repository.SnapshotFunc, onError repository.ErrorFunc) (repository.Subscription, error) {
	s.mu.Lock()
	s.subscribes++
	s.onChange = onChange
	s.onError = onError
	s.mu.Unlock()

	s.emit()
	return fakeSubscription{s}, nil
}

func (s *fakeStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

type fakeSubscription struct{ s *fakeStore }

func (f fakeSubscription) Unsubscribe() {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.onChange = nil
	f.s.onError = nil
	f.s.unsubscribed = true
}

// MockCalendar mocks the event and sign-in calls; sign-in state is driven by setState.
type MockCalendar struct {
	mock.Mock

	mu        sync.Mutex
	state     calendar.State
	listeners map[int]func(calendar.State)
	nextID    int
}

func newMockCalendar(state calendar.State) *MockCalendar {
	return &MockCalendar{state: state, listeners: make(map[int]func(calendar.State))}
}

func (m *MockCalendar) State() calendar.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockCalendar) setState(state calendar.State) {
	m.mu.Lock()
	m.state = state
	fns := make([]func(calendar.State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (m *MockCalendar) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func (m *MockCalendar) OnStateChange(fn func(calendar.State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *MockCalendar) BeginSignIn() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCalendar) CreateEvent(ctx context.Context, task model.Task) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}
