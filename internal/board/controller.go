package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"thegrid/internal/calendar"
	"thegrid/internal/logger"
	"thegrid/internal/model"
	"thegrid/internal/repository"
)

var (
	// ErrFormClosed is returned by draft actions when no create form is open
	ErrFormClosed = errors.New("no task form is open")

	// ErrSaveInProgress is returned while the draft is being saved
	ErrSaveInProgress = errors.New("save already in progress")
)

// Store is the part of the task store the board uses.
type Store interface {
	Create(ctx context.Context, task *model.Task) (string, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) error
	Get(ctx context.Context, id string) (*model.Task, error)
	FetchAll(ctx context.Context) ([]model.Task, error)
	Subscribe(ctx context.Context, order repository.Order, onChange repository.SnapshotFunc, onError repository.ErrorFunc) (repository.Subscription, error)
}

// Calendar is the part of the calendar session the board uses.
type Calendar interface {
	State() calendar.State
	OnStateChange(fn func(calendar.State)) func()
	BeginSignIn() (string, error)
	CreateEvent(ctx context.Context, task model.Task) (string, error)
}

type Options struct {
	StoreTimeout    time.Duration
	CalendarTimeout time.Duration
	Granularity     int
}

// SaveResult describes a committed save. CalendarErr is set when the task was
// stored but mirroring it to the calendar failed.
type SaveResult struct {
	Task        model.Task
	EventID     string
	CalendarErr error
	Warning     string
}

// Controller holds the board state for one session: the latest snapshot, the
// create-form draft and the detail selection. All methods are safe for
// concurrent use; state changes are serialised by mu.
type Controller struct {
	store Store
	cal   Calendar
	opts  Options
	log   zerolog.Logger

	// toggleMu makes each read-then-write toggle atomic within the process.
	toggleMu sync.Mutex

	mu         sync.Mutex
	active     bool
	sub        repository.Subscription
	unwatchCal func()
	tasks      []model.Task
	degraded   bool
	lastErr    string
	calState   calendar.State
	draft      *model.Task
	saving     bool
	selectedID string
	watchers   map[int]chan View
	nextWatch  int
}

func NewController(store Store, cal Calendar, opts Options) *Controller {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 10 * time.Second
	}
	if opts.CalendarTimeout <= 0 {
		opts.CalendarTimeout = 15 * time.Second
	}
	if opts.Granularity <= 0 {
		opts.Granularity = model.DurationGranularity
	}
	return &Controller{
		store:    store,
		cal:      cal,
		opts:     opts,
		log:      logger.With("board"),
		watchers: make(map[int]chan View),
	}
}

// Activate opens the live task feed and starts following the calendar
// sign-in state. Calling it on an active controller does nothing.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = true
	c.calState = c.cal.State()
	c.mu.Unlock()

	unwatch := c.cal.OnStateChange(c.onCalendarState)
	sub, err := c.store.Subscribe(ctx, repository.NewestFirst, c.onSnapshot, c.onStoreError)
	if err != nil {
		unwatch()
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return fmt.Errorf("subscribe to tasks: %w", err)
	}

	c.mu.Lock()
	c.sub = sub
	c.unwatchCal = unwatch
	c.mu.Unlock()

	c.log.Info().Msg("board activated")
	return nil
}

// Deactivate releases the task feed and calendar listener and closes all watchers.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	sub, unwatch := c.sub, c.unwatchCal
	c.sub, c.unwatchCal = nil, nil
	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if unwatch != nil {
		unwatch()
	}
	c.log.Info().Msg("board deactivated")
}

func (c *Controller) onSnapshot(tasks []model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.tasks = tasks
	c.degraded = false
	c.lastErr = ""
	c.publishLocked()
}

func (c *Controller) onStoreError(err error) {
	c.log.Warn().Err(err).Msg("task feed degraded")

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.degraded = true
	c.lastErr = err.Error()
	c.publishLocked()
}

func (c *Controller) onCalendarState(state calendar.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calState = state
	c.publishLocked()
}

// View returns the current board state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Watch streams board views. The channel holds only the latest view and is
// closed by cancel or Deactivate.
func (c *Controller) Watch() (<-chan View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan View, 1)
	if !c.active {
		ch <- c.viewLocked()
		close(ch)
		return ch, func() {}
	}

	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = ch
	ch <- c.viewLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w, ok := c.watchers[id]; ok {
			close(w)
			delete(c.watchers, id)
		}
	}
}

func (c *Controller) publishLocked() {
	if len(c.watchers) == 0 {
		return
	}
	v := c.viewLocked()
	for _, ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// OpenCreateForm starts a fresh draft in the given column.
func (c *Controller) OpenCreateForm(context string) error {
	if context != "" && !model.IsContext(context) {
		return &model.ValidationError{Field: model.FieldContext, Reason: fmt.Sprintf("unknown context %q", context)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return ErrSaveInProgress
	}
	draft := model.NewDraft(context)
	c.draft = &draft
	c.publishLocked()
	return nil
}

// UpdateDraftField sets one field of the open draft.
func (c *Controller) UpdateDraftField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return ErrFormClosed
	}
	if c.saving {
		return ErrSaveInProgress
	}

	patch, err := model.ValidateField(field, value, c.opts.Granularity)
	if err != nil {
		return err
	}
	patch.Apply(c.draft)
	c.publishLocked()
	return nil
}

// Cancel closes the create form and discards the draft.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return ErrSaveInProgress
	}
	c.draft = nil
	c.publishLocked()
	return nil
}

// Save persists the draft. The store write decides success; calendar sync
// runs afterwards, only for schedulable tasks while signed in, and its
// failure is reported in the result rather than as an error.
func (c *Controller) Save(ctx context.Context) (SaveResult, error) {
	c.mu.Lock()
	if c.draft == nil {
		c.mu.Unlock()
		return SaveResult{}, ErrFormClosed
	}
	if c.saving {
		c.mu.Unlock()
		return SaveResult{}, ErrSaveInProgress
	}
	c.saving = true
	task := *c.draft
	c.publishLocked()
	c.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	_, err := c.store.Create(sctx, &task)
	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && !errors.Is(err, repository.ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	cancel()

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.publishLocked()
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("task not saved")
		return SaveResult{}, err
	}
	c.draft = nil
	c.publishLocked()
	c.mu.Unlock()

	c.log.Info().Str("task_id", task.ID).Str("context", task.Context).Msg("task created")
	result := SaveResult{Task: task}

	if !model.IsSchedulable(task) {
		if err := model.CheckSchedule(task); err != nil {
			result.Warning = fmt.Sprintf("task saved without calendar event: %v", err)
		}
		return result, nil
	}
	if c.cal.State() != calendar.StateSignedIn {
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, c.opts.CalendarTimeout)
	defer cancel()
	eventID, err := c.cal.CreateEvent(cctx, task)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) && !errors.Is(err, calendar.ErrCalendarUnavailable) {
			err = fmt.Errorf("%w: %v", calendar.ErrCalendarUnavailable, err)
		}
		c.log.Warn().Err(err).Str("task_id", task.ID).Msg("calendar sync failed")
		result.CalendarErr = err
		result.Warning = fmt.Sprintf("task saved but calendar sync failed: %v", err)
		return result, nil
	}

	c.log.Info().Str("task_id", task.ID).Str("event_id", eventID).Msg("calendar event created")
	result.EventID = eventID
	return result, nil
}

// ToggleComplete flips the completed flag of a stored task. The current
// value is read from the store, not the last snapshot, which may still lag
// behind an earlier toggle. The board shows the new value once the feed
// delivers it.
func (c *Controller) ToggleComplete(ctx context.Context, id string) error {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	defer cancel()

	task, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}

	next := !task.Completed
	if err := c.store.Update(ctx, id, model.TaskPatch{Completed: &next}); err != nil {
		return err
	}
	c.log.Info().Str("task_id", id).Bool("completed", next).Msg("task toggled")
	return nil
}

// FetchAll reads the task list once, bypassing the live feed.
func (c *Controller) FetchAll(ctx context.Context) ([]model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	defer cancel()
	return c.store.FetchAll(ctx)
}

// SignIn starts calendar sign-in and returns the consent URL.
func (c *Controller) SignIn() (string, error) {
	return c.cal.BeginSignIn()
}

// SelectTask opens the detail view for a task in the current snapshot.
func (c *Controller) SelectTask(id string) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			c.selectedID = id
			c.publishLocked()
			return t, nil
		}
	}
	return model.Task{}, repository.ErrTaskNotFound
}

// CloseDetail clears the detail selection.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = ""
	c.publishLocked()
}
