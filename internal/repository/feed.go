package repository

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"thegrid/internal/model"
)

type fetchFunc func(ctx context.Context, order Order) ([]model.Task, error)

// snapshotFeed turns a one-shot query into a live feed for backends that have
// no native listener. Each subscription polls on its own goroutine; local
// writes call notify so the writer sees its change without waiting a full
// interval.
type snapshotFeed struct {
	fetch    fetchFunc
	interval time.Duration
	backoff  func(attempt int) time.Duration

	mu   sync.Mutex
	subs map[*feedSubscription]struct{}
}

func newSnapshotFeed(fetch fetchFunc, interval time.Duration) *snapshotFeed {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &snapshotFeed{
		fetch:    fetch,
		interval: interval,
		backoff:  exponentialBackoff(250*time.Millisecond, 30*time.Second),
		subs:     make(map[*feedSubscription]struct{}),
	}
}

type feedSubscription struct {
	feed    *snapshotFeed
	cancel  context.CancelFunc
	kick    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

func (f *snapshotFeed) subscribe(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &feedSubscription{
		feed:   f,
		cancel: cancel,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go s.run(ctx, order, onChange, onError)
	return s
}

// notify asks every subscription to refresh now.
func (f *snapshotFeed) notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// stopAll cancels every subscription and waits for their goroutines.
func (f *snapshotFeed) stopAll() {
	f.mu.Lock()
	subs := make([]*feedSubscription, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
		<-s.done
	}
}

func (s *feedSubscription) Unsubscribe() {
	if s.stopped.Swap(true) {
		return
	}
	s.cancel()
	s.feed.mu.Lock()
	delete(s.feed.subs, s)
	s.feed.mu.Unlock()
}

func (s *feedSubscription) run(ctx context.Context, order Order, onChange SnapshotFunc, onError ErrorFunc) {
	defer close(s.done)

	var last []model.Task
	delivered := false
	forced := true
	failures := 0

	for {
		tasks, err := s.feed.fetch(ctx, order)
		if ctx.Err() != nil {
			return
		}

		wait := s.feed.interval
		if err != nil {
			failures++
			if onError != nil && !s.stopped.Load() {
				onError(err)
			}
			wait = s.feed.backoff(failures)
		} else {
			if forced || failures > 0 || !delivered || !reflect.DeepEqual(last, tasks) {
				if !s.stopped.Load() {
					onChange(tasks)
				}
				delivered = true
			}
			last = tasks
			failures = 0
			forced = false
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.kick:
			timer.Stop()
			forced = true
		case <-timer.C:
		}
	}
}

// exponentialBackoff doubles the delay per attempt, starting at initial and
// never exceeding max.
func exponentialBackoff(initial, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 1 {
			return initial
		}
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}
