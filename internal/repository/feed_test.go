package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"thegrid/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := exponentialBackoff(10*time.Millisecond, 50*time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, backoff(0))
	assert.Equal(t, 10*time.Millisecond, backoff(1))
	assert.Equal(t, 20*time.Millisecond, backoff(2))
	assert.Equal(t, 40*time.Millisecond, backoff(3))
	assert.Equal(t, 50*time.Millisecond, backoff(4))
	assert.Equal(t, 50*time.Millisecond, backoff(10))
}

func TestSnapshotFeed_RecoversAfterError(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context, order Order) ([]model.Task, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			return nil, errors.New("connection lost")
		}
		return []model.Task{{ID: "a"}}, nil
	}
	feed := newSnapshotFeed(fetch, 5*time.Millisecond)
	feed.backoff = func(int) time.Duration { return 5 * time.Millisecond }

	var mu sync.Mutex
	var snaps, errs int
	sub := feed.subscribe(context.Background(), NewestFirst,
		func([]model.Task) { mu.Lock(); snaps++; mu.Unlock() },
		func(error) { mu.Lock(); errs++; mu.Unlock() },
	)
	defer sub.Unsubscribe()

	// First snapshot, then an error, then a redelivery of the unchanged list.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return snaps >= 2 && errs == 1
	}, time.Second, time.Millisecond)
}

func TestSnapshotFeed_SkipsUnchangedPolls(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context, order Order) ([]model.Task, error) {
		atomic.AddInt32(&calls, 1)
		return []model.Task{{ID: "a"}}, nil
	}
	feed := newSnapshotFeed(fetch, 2*time.Millisecond)

	var snaps int32
	sub := feed.subscribe(context.Background(), NewestFirst, func([]model.Task) { atomic.AddInt32(&snaps, 1) }, nil)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 5 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&snaps))

	// A kick always redelivers, even without a change.
	feed.notify()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&snaps) == 2 }, time.Second, time.Millisecond)
}

func TestSnapshotFeed_StopAll(t *testing.T) {
	fetch := func(ctx context.Context, order Order) ([]model.Task, error) { return nil, nil }
	feed := newSnapshotFeed(fetch, time.Millisecond)
	feed.subscribe(context.Background(), NewestFirst, func([]model.Task) {}, nil)
	feed.subscribe(context.Background(), NewestFirst, func([]model.Task) {}, nil)

	feed.stopAll()

	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Empty(t, feed.subs)
}

func TestSortTasks_StableTieBreak(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "b", Timestamp: ts},
		{ID: "c", Timestamp: ts.Add(time.Minute)},
		{ID: "a", Timestamp: ts},
	}

	sortTasks(tasks, NewestFirst)

	assert.Equal(t, []string{"c", "a", "b"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}

func TestMapRPCErr(t *testing.T) {
	assert.ErrorIs(t, mapRPCErr(status.Error(codes.NotFound, "no doc")), ErrTaskNotFound)
	assert.ErrorIs(t, mapRPCErr(status.Error(codes.InvalidArgument, "too large")), ErrStoreRejected)
	assert.ErrorIs(t, mapRPCErr(status.Error(codes.Unavailable, "down")), ErrStoreUnavailable)
	assert.ErrorIs(t, mapRPCErr(context.DeadlineExceeded), ErrStoreUnavailable)
	assert.NoError(t, mapRPCErr(nil))
}
