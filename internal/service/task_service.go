package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"todoList/internal/logger"
	"todoList/internal/models/task"
	rep "todoList/internal/repository"

	"go.uber.org/zap"
)

const DefaultStorageKey = "tasks"
const DefaultReminderTitle = "Напоминание о задаче"

// TaskStore is the only owner of the task collection. Every operation holds the
// store mutex for its whole duration, so operations never interleave. The
// collection is mirrored to the key/value store after each mutation through a
// sequential write queue; notification calls are made synchronously.
type TaskStore struct {
	mtx   sync.Mutex
	tasks []*task.Task

	kv       KeyValueStore
	notifier Notifier
	queue    *writeQueue
	events   *eventBus

	key           string
	reminderTitle string
	writeTimeout  time.Duration
	clock         func() time.Time

	lastID      int64
	permitted   bool
	initialized bool
}

type StoreOption func(*TaskStore)

func WithClock(clock func() time.Time) StoreOption {
	return func(s *TaskStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithStorageKey(key string) StoreOption {
	return func(s *TaskStore) {
		if key != "" {
			s.key = key
		}
	}
}

func WithReminderTitle(title string) StoreOption {
	return func(s *TaskStore) {
		if title != "" {
			s.reminderTitle = title
		}
	}
}

func WithWriteTimeout(timeout time.Duration) StoreOption {
	return func(s *TaskStore) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

// NewTaskStore builds an empty store. notifier may be nil, in which case reminders are never scheduled.
func NewTaskStore(kv KeyValueStore, notifier Notifier, options ...StoreOption) *TaskStore {
	s := &TaskStore{
		tasks:         []*task.Task{},
		kv:            kv,
		notifier:      notifier,
		events:        newEventBus(),
		key:           DefaultStorageKey,
		reminderTitle: DefaultReminderTitle,
		writeTimeout:  5 * time.Second,
		clock:         time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.queue = newWriteQueue(kv, s.key, s.writeTimeout, s.onWriteError)
	return s
}

// Initialize asks for notification permission once and loads the persisted
// collection. Read or decode failures are logged and leave the store empty;
// the only error returned is for a repeated call.
func (s *TaskStore) Initialize(ctx context.Context) error {
	s.mtx.Lock()
	if s.initialized {
		s.mtx.Unlock()
		return errors.New("хранилище задач уже инициализировано")
	}
	s.initialized = true

	var alerts []Event
	s.permitted, alerts = s.requestPermission(ctx)

	tasks, err := s.load(ctx)
	if err != nil {
		logger.Error("Service: Не удалось загрузить задачи, старт с пустым списком", err)
		alerts = append(alerts, s.alert("Сохранённые задачи не удалось загрузить", err))
		tasks = []task.Task{}
	}

	s.tasks = make([]*task.Task, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		s.tasks = append(s.tasks, &t)
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.queue.start()
	count := len(s.tasks)
	s.mtx.Unlock()

	logger.Info("Service: Хранилище задач инициализировано",
		zap.Int("tasks", count),
		zap.Bool("notifications", s.NotificationsPermitted()))

	for _, ev := range alerts {
		s.events.publish(ev)
	}
	s.events.publish(Event{Type: EventTasksChanged, At: s.clock()})
	return nil
}

func (s *TaskStore) requestPermission(ctx context.Context) (bool, []Event) {
	if s.notifier == nil {
		return false, nil
	}

	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		logger.Warn("Service: Ошибка запроса разрешения на уведомления", zap.Error(err))
		return false, []Event{s.alert("Не удалось получить разрешение на уведомления", err)}
	}
	if !granted {
		logger.Warn("Service: Уведомления запрещены, напоминания отключены")
		return false, []Event{s.alert("Уведомления запрещены: напоминания работать не будут", nil)}
	}
	return true, nil
}

func (s *TaskStore) load(ctx context.Context) ([]task.Task, error) {
	blob, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return []task.Task{}, nil
		}
		return nil, NewPersistenceError("load", err)
	}

	tasks, err := task.DecodeCollection(blob)
	if err != nil {
		return nil, NewPersistenceError("decode", err)
	}
	return tasks, nil
}

// Add stores a new task. When the reminder cannot be scheduled the task is
// still stored and returned together with a NOTIFICATION_ERROR (see IsWarning).
func (s *TaskStore) Add(ctx context.Context, draft task.Draft) (task.Task, error) {
	draft = task.NewDraft(draft.Text, copyDraft(draft))
	if err := validateDraft(draft); err != nil {
		return task.Task{}, err
	}

	s.mtx.Lock()
	newTask := &task.Task{
		ID:           s.nextID(),
		Text:         draft.Text,
		Priority:     draft.Priority,
		Category:     draft.Category,
		ReminderDate: draft.Reminder,
	}
	warn := s.scheduleLocked(ctx, newTask)
	s.tasks = append(s.tasks, newTask)
	created := *newTask
	s.persistLocked()
	s.mtx.Unlock()

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Bool("reminder", created.NotificationID.IsSet()))

	s.afterMutation(warn)
	return created, warn
}

// Update replaces the editable fields of a task. Any scheduled notification is
// cancelled first and a new one is scheduled only for a future reminder.
func (s *TaskStore) Update(ctx context.Context, id int64, draft task.Draft) (task.Task, error) {
	draft = task.NewDraft(draft.Text, copyDraft(draft))

	s.mtx.Lock()
	existing := s.findLocked(id)
	if existing == nil {
		s.mtx.Unlock()
		logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
		return task.Task{}, NewNotFound(id)
	}
	if err := validateDraft(draft); err != nil {
		s.mtx.Unlock()
		return task.Task{}, err
	}

	s.cancelLocked(ctx, existing)

	existing.Text = draft.Text
	existing.Priority = draft.Priority
	existing.Category = draft.Category
	existing.ReminderDate = draft.Reminder
	warn := s.scheduleLocked(ctx, existing)

	updated := *existing
	s.persistLocked()
	s.mtx.Unlock()

	logger.Info("Service: Задача обновлена",
		zap.Int64("task_id", updated.ID),
		zap.Bool("reminder", updated.NotificationID.IsSet()))

	s.afterMutation(warn)
	return updated, warn
}

func (s *TaskStore) ToggleComplete(ctx context.Context, id int64) (task.Task, error) {
	s.mtx.Lock()
	existing := s.findLocked(id)
	if existing == nil {
		s.mtx.Unlock()
		logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
		return task.Task{}, NewNotFound(id)
	}

	existing.Completed = !existing.Completed
	toggled := *existing
	s.persistLocked()
	s.mtx.Unlock()

	s.afterMutation(nil)
	return toggled, nil
}

// Delete removes a task; cancelling its notification is best effort.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	s.mtx.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mtx.Unlock()
		logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
		return NewNotFound(id)
	}

	s.cancelLocked(ctx, s.tasks[idx])
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.persistLocked()
	s.mtx.Unlock()

	logger.Info("Service: Задача удалена", zap.Int64("task_id", id))
	s.afterMutation(nil)
	return nil
}

func (s *TaskStore) Get(id int64) (task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing := s.findLocked(id)
	if existing == nil {
		return task.Task{}, NewNotFound(id)
	}
	return *existing, nil
}

// Tasks returns a copy of the collection in insertion order.
func (s *TaskStore) Tasks() []task.Task {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.snapshotLocked()
}

func (s *TaskStore) Project(filter task.Filter, sortBy task.SortBy) []task.Task {
	return task.Project(s.Tasks(), filter, sortBy)
}

func (s *TaskStore) NotificationsPermitted() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.permitted
}

// Subscribe registers fn for every subsequent event; call the returned func to stop.
func (s *TaskStore) Subscribe(fn func(Event)) func() {
	return s.events.subscribe(fn)
}

// Alert publishes a transient user-facing message to subscribers.
func (s *TaskStore) Alert(message string) {
	s.events.publish(s.alert(message, nil))
}

func (s *TaskStore) HealthCheck(ctx context.Context) error {
	if err := s.kv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// Flush waits for pending writes and returns the last write failure since the previous Flush.
func (s *TaskStore) Flush(ctx context.Context) error {
	if err := s.queue.flushWait(ctx); err != nil {
		return NewPersistenceError("save", err)
	}
	return nil
}

// Close writes the newest pending snapshot and stops the write queue.
func (s *TaskStore) Close(ctx context.Context) error {
	if err := s.queue.close(ctx); err != nil {
		return fmt.Errorf("остановка очереди записи: %w", err)
	}
	return nil
}

func (s *TaskStore) scheduleLocked(ctx context.Context, t *task.Task) error {
	t.NotificationID = task.None[string]()

	at, ok := t.ReminderDate.Get()
	if !ok || !at.After(s.clock()) {
		return nil
	}
	if !s.permitted {
		logger.Debug("Service: Уведомления запрещены, напоминание пропущено", zap.Int64("task_id", t.ID))
		return nil
	}

	id, err := s.notifier.Schedule(ctx, s.reminderTitle, t.Text, at)
	if err != nil {
		logger.Warn("Service: Не удалось запланировать напоминание",
			zap.Int64("task_id", t.ID),
			zap.Time("trigger", at),
			zap.Error(err))
		return NewNotificationError("schedule", t.ID, err)
	}

	t.NotificationID = task.Some(id)
	return nil
}

func (s *TaskStore) cancelLocked(ctx context.Context, t *task.Task) {
	id, ok := t.NotificationID.Get()
	if !ok {
		return
	}
	t.NotificationID = task.None[string]()

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Cancel(ctx, id); err != nil {
		logger.Warn("Service: Не удалось отменить напоминание",
			zap.Int64("task_id", t.ID),
			zap.String("notification_id", id),
			zap.Error(err))
	}
}

func (s *TaskStore) persistLocked() {
	blob, err := task.EncodeCollection(s.snapshotLocked())
	if err != nil {
		logger.Error("Service: Не удалось сериализовать задачи", err)
		return
	}
	s.queue.enqueue(blob)
}

func (s *TaskStore) onWriteError(err error) {
	logger.Error("Service: Не удалось сохранить задачи", err, zap.String("key", s.key))
	s.events.publish(s.alert("Изменения не сохранены на устройстве", NewPersistenceError("save", err)))
}

func (s *TaskStore) afterMutation(warn error) {
	s.events.publish(Event{Type: EventTasksChanged, At: s.clock()})
	if warn != nil {
		s.events.publish(s.alert("Задача сохранена, но напоминание не настроено", warn))
	}
}

func (s *TaskStore) alert(message string, err error) Event {
	return Event{Type: EventAlert, Message: message, Err: err, At: s.clock()}
}

// id is the wall-clock millisecond, bumped past the last issued or loaded id
func (s *TaskStore) nextID() int64 {
	id := s.clock().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *TaskStore) indexLocked(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) findLocked(id int64) *task.Task {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.tasks[idx]
	}
	return nil
}

func (s *TaskStore) snapshotLocked() []task.Task {
	res := make([]task.Task, len(s.tasks))
	for i, t := range s.tasks {
		res[i] = *t
	}
	return res
}

func validateDraft(draft task.Draft) error {
	if draft.Blank() {
		return NewValidationError("text", "текст задачи не может быть пустым")
	}
	if !draft.Priority.Valid() {
		return NewValidationError("priority", fmt.Sprintf("неизвестный приоритет %q", draft.Priority))
	}
	return nil
}

// copyDraft re-applies the caller's fields so NewDraft normalises a hand-built Draft.
func copyDraft(d task.Draft) task.DraftOption {
	return func(dst *task.Draft) {
		dst.Priority = d.Priority
		dst.Category = d.Category
		dst.Reminder = d.Reminder
		if dst.Priority == "" {
			dst.Priority = task.PriorityLow
		}
		if at, ok := d.Reminder.Get(); ok {
			dst.Reminder = task.Some(at.UTC().Round(0))
		}
	}
}
