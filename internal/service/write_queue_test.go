package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingKV struct {
	mtx    sync.Mutex
	writes []string
	delay  time.Duration
	fail   error
	active int
	maxPar int
}

func (r *recordingKV) Get(context.Context, string) (string, error) { return "", nil }

func (r *recordingKV) HealthCheck(context.Context) error { return nil }

func (r *recordingKV) Set(_ context.Context, _, value string) error {
	r.mtx.Lock()
	r.active++
	if r.active > r.maxPar {
		r.maxPar = r.active
	}
	r.mtx.Unlock()

	time.Sleep(r.delay)

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.active--
	if r.fail != nil {
		return r.fail
	}
	r.writes = append(r.writes, value)
	return nil
}

func TestWriteQueue_OrderAndCoalescing(t *testing.T) {
	kv := &recordingKV{delay: 2 * time.Millisecond}
	q := newWriteQueue(kv, "tasks", time.Second, nil)
	q.start()

	for i := 1; i <= 50; i++ {
		q.enqueue(strconv.Itoa(i))
	}
	require.NoError(t, q.flushWait(context.Background()))

	kv.mtx.Lock()
	defer kv.mtx.Unlock()

	require.NotEmpty(t, kv.writes)
	assert.LessOrEqual(t, len(kv.writes), 50)
	assert.Equal(t, "50", kv.writes[len(kv.writes)-1], "newest snapshot is written last")
	assert.Equal(t, 1, kv.maxPar, "writes never overlap")

	prev := 0
	for _, w := range kv.writes {
		n, err := strconv.Atoi(w)
		require.NoError(t, err)
		assert.Greater(t, n, prev, "writes complete in issue order")
		prev = n
	}
}

func TestWriteQueue_ErrorReported(t *testing.T) {
	kv := &recordingKV{fail: errors.New("disk full")}

	var mtx sync.Mutex
	var reported []error
	q := newWriteQueue(kv, "tasks", time.Second, func(err error) {
		mtx.Lock()
		reported = append(reported, err)
		mtx.Unlock()
	})
	q.start()

	q.enqueue("[]")
	err := q.flushWait(context.Background())

	assert.EqualError(t, err, "disk full")
	mtx.Lock()
	assert.Len(t, reported, 1)
	mtx.Unlock()

	assert.NoError(t, q.flushWait(context.Background()))
}

func TestWriteQueue_CloseWritesPending(t *testing.T) {
	kv := &recordingKV{delay: 5 * time.Millisecond}
	q := newWriteQueue(kv, "tasks", time.Second, nil)
	q.start()

	q.enqueue("first")
	q.enqueue("last")
	require.NoError(t, q.close(context.Background()))
	require.NoError(t, q.close(context.Background()))

	kv.mtx.Lock()
	defer kv.mtx.Unlock()
	require.NotEmpty(t, kv.writes)
	assert.Equal(t, "last", kv.writes[len(kv.writes)-1])

	assert.NoError(t, q.flushWait(context.Background()))
}

func TestWriteQueue_NotStarted(t *testing.T) {
	q := newWriteQueue(&recordingKV{}, "tasks", time.Second, nil)

	assert.NoError(t, q.flushWait(context.Background()))
	assert.NoError(t, q.close(context.Background()))
}
