package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/datastore"

	"thegrid/internal/logger"
	"thegrid/internal/model"
)

// DatastoreRepository stores tasks as entities of one kind in Cloud Datastore.
// Datastore has no listener API, so Subscribe polls.
type DatastoreRepository struct {
	client *datastore.Client
	kind   string
	feed   *snapshotFeed
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewDatastoreRepository(ctx context.Context, projectID, kind string, pollInterval time.Duration) (*DatastoreRepository, error) {
	// The client honours DATASTORE_EMULATOR_HOST by itself.
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		logger.InfoLog(ctx, "using datastore emulator at %s", emulatorHost)
	}

	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}

	r := &DatastoreRepository{client: client, kind: kind, now: time.Now}
	r.feed = newSnapshotFeed(r.list, pollInterval)
	return r, nil
}

func (r *DatastoreRepository) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now().UTC()
	if ts.Before(r.last) {
		ts = r.last
	}
	r.last = ts
	return ts
}

func (r *DatastoreRepository) key(id string) (*datastore.Key, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return nil, ErrTaskNotFound
	}
	return datastore.IDKey(r.kind, n, nil), nil
}

// Create stores a new entity under an incomplete key; Datastore allocates the id.
func (r *DatastoreRepository) Create(ctx context.Context, task *model.Task) (string, error) {
	task.Timestamp = r.stamp()

	key, err := r.client.Put(ctx, datastore.IncompleteKey(r.kind, nil), task)
	if err != nil {
		task.Timestamp = time.Time{}
		return "", mapDatastoreErr(err)
	}
	task.ID = strconv.FormatInt(key.ID, 10)
	r.feed.notify()
	return task.ID, nil
}

// Update applies the patch inside a transaction so concurrent field updates do not clobber each other.
func (r *DatastoreRepository) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	key, err := r.key(id)
	if err != nil {
		return err
	}

	_, err = r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var task model.Task
		if err := tx.Get(key, &task); err != nil {
			return err
		}
		patch.Apply(&task)
		_, err := tx.Put(key, &task)
		return err
	})
	if err != nil {
		return mapDatastoreErr(err)
	}
	r.feed.notify()
	return nil
}

func (r *DatastoreRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	key, err := r.key(id)
	if err != nil {
		return nil, err
	}
	var task model.Task
	if err := r.client.Get(ctx, key, &task); err != nil {
		return nil, mapDatastoreErr(err)
	}
	task.ID = id
	return &task, nil
}

func (r *DatastoreRepository) FetchAll(ctx context.Context) ([]model.Task, error) {
	return r.list(ctx, NewestFirst)
}

func (r *DatastoreRepository) list(ctx context.Context, order Order) ([]model.Task, error) {
	prop := order.Field
	if order.Desc {
		prop = "-" + prop
	}
	query := datastore.NewQuery(r.kind).Order(prop)

	var tasks []model.Task
	keys, err := r.client.GetAll(ctx, query, &tasks)
	if err != nil {
		return nil, mapDatastoreErr(err)
	}
	for i, key := range keys {
		tasks[i].ID = strconv.FormatInt(key.ID, 10)
	}
	// Datastore's key order is numeric; re-sort so ties follow the common id rule.
	sortTasks(tasks, order)
	return tasks, nil
}

func (r *DatastoreRepository) Subscribe(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}
	return r.feed.subscribe(ctx, order, onChange, onError), nil
}

func (r *DatastoreRepository) Close() error {
	r.feed.stopAll()
	return r.client.Close()
}

func mapDatastoreErr(err error) error {
	var mismatch *datastore.ErrFieldMismatch
	switch {
	case errors.Is(err, datastore.ErrNoSuchEntity):
		return ErrTaskNotFound
	case errors.As(err, &mismatch),
		errors.Is(err, datastore.ErrInvalidEntityType),
		errors.Is(err, datastore.ErrInvalidKey):
		return fmt.Errorf("%w: %v", ErrStoreRejected, err)
	}
	return mapRPCErr(err)
}
