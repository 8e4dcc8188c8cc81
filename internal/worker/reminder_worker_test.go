package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"todoList/internal/notification/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReminderSource struct {
	mock.Mock
}

func (m *MockReminderSource) PopDue(ctx context.Context, now time.Time, limit int) ([]local.Reminder, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]local.Reminder), args.Error(1)
}

func TestNewReminderWorker_Defaults(t *testing.T) {
	w := NewReminderWorker(new(MockReminderSource), nil, nil, nil)
	assert.Equal(t, 30*time.Second, w.interval)
	assert.Equal(t, 100, w.batchSize)

	interval := time.Second
	batch := 5
	w = NewReminderWorker(new(MockReminderSource), nil, &interval, &batch)
	assert.Equal(t, time.Second, w.Interval())
	assert.Equal(t, 5, w.batchSize)
}

func TestReminderWorker_Check(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	batch := 2

	t.Run("delivers due reminders", func(t *testing.T) {
		source := new(MockReminderSource)
		due := []local.Reminder{
			{ID: "a", Body: "Call mom", At: now.Add(-time.Minute)},
			{ID: "b", Body: "Buy milk", At: now},
		}
		source.On("PopDue", mock.Anything, now, batch).Return(due, nil).Once()

		var delivered []string
		w := NewReminderWorker(source, func(_ context.Context, r local.Reminder) {
			delivered = append(delivered, r.ID)
		}, nil, &batch)
		w.clock = func() time.Time { return now }

		count, err := w.Check(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, []string{"a", "b"}, delivered)
		source.AssertExpectations(t)
	})

	t.Run("source error", func(t *testing.T) {
		source := new(MockReminderSource)
		source.On("PopDue", mock.Anything, now, batch).Return(nil, errors.New("store down")).Once()

		w := NewReminderWorker(source, func(context.Context, local.Reminder) {
			t.Fatal("nothing should be delivered")
		}, nil, &batch)
		w.clock = func() time.Time { return now }

		count, err := w.Check(context.Background())

		assert.Error(t, err)
		assert.Zero(t, count)
	})
}

func TestReminderWorker_StartStops(t *testing.T) {
	notifier := local.New(nil, true)
	id, err := notifier.Schedule(context.Background(), "t", "soon", time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)

	var mtx sync.Mutex
	var delivered []string
	interval := 10 * time.Millisecond
	w := NewReminderWorker(notifier, func(_ context.Context, r local.Reminder) {
		mtx.Lock()
		delivered = append(delivered, r.ID)
		mtx.Unlock()
	}, &interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mtx.Lock()
		defer mtx.Unlock()
		return len(delivered) == 1 && delivered[0] == id
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
