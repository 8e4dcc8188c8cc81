package service

import (
	"context"
	"sync"
	"time"

	"todoList/internal/logger"

	"go.uber.org/zap"
)

// writeQueue persists collection snapshots one at a time in issue order.
// Snapshots enqueued while a write is in flight collapse into the newest one.
type writeQueue struct {
	kv      KeyValueStore
	key     string
	timeout time.Duration
	onError func(error)

	mtx     sync.Mutex
	latest  *string
	started bool

	// failed is only touched by the run goroutine
	failed error

	wake  chan struct{}
	flush chan chan error
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newWriteQueue(kv KeyValueStore, key string, timeout time.Duration, onError func(error)) *writeQueue {
	if onError == nil {
		onError = func(error) {}
	}
	return &writeQueue{
		kv:      kv,
		key:     key,
		timeout: timeout,
		onError: onError,
		wake:    make(chan struct{}, 1),
		flush:   make(chan chan error),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (q *writeQueue) start() {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.started {
		return
	}
	q.started = true
	go q.run()
}

func (q *writeQueue) isStarted() bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.started
}

func (q *writeQueue) enqueue(payload string) {
	q.mtx.Lock()
	q.latest = &payload
	q.mtx.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *writeQueue) run() {
	defer close(q.done)

	for {
		select {
		case <-q.wake:
			q.writePending()
		case reply := <-q.flush:
			q.writePending()
			reply <- q.failed
			q.failed = nil
		case <-q.stop:
			q.writePending()
			return
		}
	}
}

func (q *writeQueue) writePending() {
	q.mtx.Lock()
	payload := q.latest
	q.latest = nil
	q.mtx.Unlock()

	if payload == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	if err := q.kv.Set(ctx, q.key, *payload); err != nil {
		q.failed = err
		q.onError(err)
		return
	}
	logger.Debug("Service: Коллекция сохранена",
		zap.String("key", q.key),
		zap.Int("bytes", len(*payload)),
		zap.Duration("ms", time.Since(start)))
}

// flushWait blocks until every snapshot enqueued before the call is written and
// returns the last write error seen since the previous flush.
func (q *writeQueue) flushWait(ctx context.Context) error {
	if !q.isStarted() {
		return nil
	}

	reply := make(chan error, 1)
	select {
	case q.flush <- reply:
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *writeQueue) close(ctx context.Context) error {
	if !q.isStarted() {
		return nil
	}

	q.once.Do(func() { close(q.stop) })

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
