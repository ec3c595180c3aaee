package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"thegrid/internal/model"
)

// SnapshotFunc receives the complete, ordered task list.
type SnapshotFunc func(tasks []model.Task)

// ErrorFunc receives feed failures. The feed keeps retrying after calling it.
type ErrorFunc func(err error)

// Subscription is a live feed handle.
type Subscription interface {
	Unsubscribe()
}

// Order selects the snapshot sort key.
type Order struct {
	Field string
	Desc  bool
}

// NewestFirst is the board's listing order.
var NewestFirst = Order{Field: model.FieldTimestamp, Desc: true}

// TaskStore is the remote task collection.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) (string, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) error
	Get(ctx context.Context, id string) (*model.Task, error)
	FetchAll(ctx context.Context) ([]model.Task, error)
	Subscribe(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Close() error
}

var orderFields = map[string]bool{
	model.FieldTimestamp:   true,
	model.FieldDeadline:    true,
	model.FieldEventDate:   true,
	model.FieldDescription: true,
	model.FieldContext:     true,
}

func (o Order) validate() error {
	if !orderFields[o.Field] {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, o.Field)
	}
	return nil
}

// sortTasks orders tasks by o with id ascending as the tie-break.
func sortTasks(tasks []model.Task, o Order) {
	sort.SliceStable(tasks, func(i, j int) bool {
		c := compareField(tasks[i], tasks[j], o.Field)
		if c == 0 {
			return tasks[i].ID < tasks[j].ID
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b model.Task, field string) int {
	switch field {
	case model.FieldTimestamp:
		return a.Timestamp.Compare(b.Timestamp)
	case model.FieldDeadline:
		return strings.Compare(a.Deadline, b.Deadline)
	case model.FieldEventDate:
		return strings.Compare(a.EventDate, b.EventDate)
	case model.FieldDescription:
		return strings.Compare(a.Description, b.Description)
	case model.FieldContext:
		return strings.Compare(a.Context, b.Context)
	}
	return 0
}
