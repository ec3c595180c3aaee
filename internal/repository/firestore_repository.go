package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"thegrid/internal/logger"
	"thegrid/internal/model"
)

// FirestoreRepository stores tasks as documents in a Firestore collection.
// Firestore assigns document ids and the creation timestamp.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
	backoff    func(int) time.Duration

	mu   sync.Mutex
	subs map[*listenerSubscription]struct{}
	wg   sync.WaitGroup
}

func NewFirestoreRepository(ctx context.Context, projectID, collection string) (*FirestoreRepository, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreRepository{
		client:     client,
		collection: collection,
		backoff:    exponentialBackoff(250*time.Millisecond, 30*time.Second),
		subs:       make(map[*listenerSubscription]struct{}),
	}, nil
}

func (r *FirestoreRepository) tasks() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

// query orders by the requested field. Firestore adds an implicit document id
// ordering in the same direction, which keeps ties stable.
func (r *FirestoreRepository) query(order Order) firestore.Query {
	dir := firestore.Asc
	if order.Desc {
		dir = firestore.Desc
	}
	return r.tasks().OrderBy(order.Field, dir)
}

func (r *FirestoreRepository) Create(ctx context.Context, task *model.Task) (string, error) {
	task.Timestamp = time.Time{}
	ref, _, err := r.tasks().Add(ctx, task)
	if err != nil {
		return "", mapRPCErr(err)
	}
	task.ID = ref.ID
	return ref.ID, nil
}

func (r *FirestoreRepository) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := r.tasks().Doc(id).Update(ctx, updates); err != nil {
		return mapRPCErr(err)
	}
	return nil
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	snap, err := r.tasks().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapRPCErr(err)
	}
	return decodeDoc(snap)
}

func (r *FirestoreRepository) FetchAll(ctx context.Context) ([]model.Task, error) {
	docs, err := r.query(NewestFirst).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapRPCErr(err)
	}
	return decodeDocs(docs)
}

// Subscribe attaches a Firestore snapshot listener. Every query snapshot is
// delivered whole. A broken listener is reopened with backoff.
func (r *FirestoreRepository) Subscribe(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &listenerSubscription{cancel: cancel}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.subs, sub)
			r.mu.Unlock()
		}()
		failures := 0
		for {
			err := r.listen(ctx, order, sub, onChange, &failures)
			if ctx.Err() != nil {
				return
			}
			failures++
			if onError != nil && !sub.isStopped() {
				onError(err)
			}
			logger.WarnLog(ctx, "firestore listener on %s dropped: %v", r.collection, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff(failures)):
			}
		}
	}()
	return sub, nil
}

func (r *FirestoreRepository) listen(ctx context.Context, order Order, sub *listenerSubscription, onChange SnapshotFunc, failures *int) error {
	it := r.query(order).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return fmt.Errorf("%w: listener closed", ErrStoreUnavailable)
			}
			return mapRPCErr(err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return mapRPCErr(err)
		}
		tasks, err := decodeDocs(docs)
		if err != nil {
			return err
		}
		*failures = 0
		if !sub.isStopped() {
			onChange(tasks)
		}
	}
}

// Close stops every listener, then closes the client.
func (r *FirestoreRepository) Close() error {
	r.mu.Lock()
	for sub := range r.subs {
		sub.Unsubscribe()
	}
	r.mu.Unlock()
	r.wg.Wait()
	return r.client.Close()
}

func decodeDoc(snap *firestore.DocumentSnapshot) (*model.Task, error) {
	var task model.Task
	if err := snap.DataTo(&task); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreRejected, snap.Ref.ID, err)
	}
	task.ID = snap.Ref.ID
	return &task, nil
}

func decodeDocs(docs []*firestore.DocumentSnapshot) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := decodeDoc(doc)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// listenerSubscription cancels a native listener goroutine.
type listenerSubscription struct {
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func (s *listenerSubscription) Unsubscribe() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
}

func (s *listenerSubscription) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
