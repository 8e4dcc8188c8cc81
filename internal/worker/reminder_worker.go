package worker

import (
	"context"
	"fmt"
	"time"

	"todoList/internal/logger"
	"todoList/internal/notification/local"

	"go.uber.org/zap"
)

type ReminderSource interface {
	PopDue(ctx context.Context, now time.Time, limit int) ([]local.Reminder, error)
}

// DeliverFunc shows a fired reminder to the user.
type DeliverFunc func(ctx context.Context, r local.Reminder)

type ReminderWorker struct {
	source    ReminderSource
	deliver   DeliverFunc
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

func NewReminderWorker(source ReminderSource, deliver DeliverFunc, interval *time.Duration, batchSize *int) *ReminderWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 30 * time.Second
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil || *batchSize <= 0 {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}

	if deliver == nil {
		deliver = func(context.Context, local.Reminder) {}
	}

	return &ReminderWorker{
		source:    source,
		deliver:   deliver,
		interval:  intervalToSet,
		batchSize: batchToSet,
		clock:     time.Now,
	}
}

func (w *ReminderWorker) Interval() time.Duration {
	return w.interval
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Проверка напоминаний запущена", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: Ошибка проверки напоминаний", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Проверка напоминаний останавливается")
			return
		}
	}
}

// Check delivers reminders that are due now, at most batchSize per call.
func (w *ReminderWorker) Check(ctx context.Context) (int, error) {
	start := w.clock()

	due, err := w.source.PopDue(ctx, start, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("получение напоминаний: %w", err)
	}

	for _, r := range due {
		w.deliver(ctx, r)
	}

	if len(due) > 0 {
		logger.Info(
			"Worker: Напоминания доставлены",
			zap.Duration("ms", time.Since(start)),
			zap.Int("delivered", len(due)),
		)
	}
	return len(due), nil
}
