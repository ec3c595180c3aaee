package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thegrid/internal/model"
)

// columns maps stored field names to SQL columns.
var columns = map[string]string{
	model.FieldContext:     "context",
	model.FieldDescription: "description",
	model.FieldNotes:       "notes",
	model.FieldDeadline:    "deadline",
	model.FieldEventDate:   "event_date",
	model.FieldTime:        "time",
	model.FieldDuration:    "duration",
	model.FieldLocation:    "location",
	model.FieldAttachment:  "attachment",
	model.FieldCompleted:   "completed",
	model.FieldTimestamp:   "timestamp",
}

// TaskRepository stores tasks in a SQL database through gorm.
type TaskRepository struct {
	db   *gorm.DB
	feed *snapshotFeed
	now  func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewTaskRepository(db *gorm.DB, pollInterval time.Duration) *TaskRepository {
	r := &TaskRepository{db: db, now: time.Now}
	r.feed = newSnapshotFeed(r.list, pollInterval)
	return r
}

// Migrate creates or updates the tasks table.
func (r *TaskRepository) Migrate() error {
	return r.db.AutoMigrate(&model.Task{})
}

// stamp returns the creation time for a new task, never earlier than the previous one.
func (r *TaskRepository) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now().UTC()
	if ts.Before(r.last) {
		ts = r.last
	}
	r.last = ts
	return ts
}

// Create inserts a new task, assigning its ID and Timestamp.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (string, error) {
	task.ID = uuid.NewString()
	task.Timestamp = r.stamp()

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		task.ID = ""
		task.Timestamp = time.Time{}
		return "", mapGormErr(err)
	}
	r.feed.notify()
	return task.ID, nil
}

// Update merges the patch into an existing task.
func (r *TaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}

	updates := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		updates[columns[k]] = v
	}

	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return mapGormErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	r.feed.notify()
	return nil
}

// Get retrieves a task by its ID
func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &task, nil
}

// FetchAll returns every task, newest first.
func (r *TaskRepository) FetchAll(ctx context.Context) ([]model.Task, error) {
	return r.list(ctx, NewestFirst)
}

func (r *TaskRepository) list(ctx context.Context, order Order) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: columns[order.Field]}, Desc: order.Desc}).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, mapGormErr(err)
	}
	return tasks, nil
}

// Subscribe polls the table and pushes full snapshots to onChange.
func (r *TaskRepository) Subscribe(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}
	return r.feed.subscribe(ctx, order, onChange, onError), nil
}

// Close stops all feeds and closes the connection pool.
func (r *TaskRepository) Close() error {
	r.feed.stopAll()
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapGormErr(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrTaskNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrInvalidField):
		return fmt.Errorf("%w: %v", ErrStoreRejected, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
