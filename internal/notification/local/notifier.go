package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"todoList/internal/logger"
	repo "todoList/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultStorageKey = "reminders"

var ErrPermissionDenied = errors.New("уведомления запрещены")
var ErrInvalidTrigger = errors.New("время напоминания должно быть в будущем")
var ErrUnknownNotification = errors.New("напоминание не найдено")

// Reminder is a scheduled local notification.
type Reminder struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Notifier keeps pending reminders in memory and mirrors them to the store so
// they survive a restart. Delivery is driven from outside through PopDue.
type Notifier struct {
	mtx     sync.Mutex
	pending map[string]Reminder

	kv      Store
	key     string
	enabled bool
	clock   func() time.Time
}

type Option func(*Notifier)

func WithClock(clock func() time.Time) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

func WithStorageKey(key string) Option {
	return func(n *Notifier) {
		if key != "" {
			n.key = key
		}
	}
}

// New returns a notifier; kv may be nil to keep reminders in memory only.
func New(kv Store, enabled bool, options ...Option) *Notifier {
	n := &Notifier{
		pending: make(map[string]Reminder),
		kv:      kv,
		key:     DefaultStorageKey,
		enabled: enabled,
		clock:   time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Load restores reminders saved by a previous run. Nothing stored is not an error.
func (n *Notifier) Load(ctx context.Context) error {
	if n.kv == nil {
		return nil
	}

	blob, err := n.kv.Get(ctx, n.key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("чтение напоминаний: %w", err)
	}
	if strings.TrimSpace(blob) == "" {
		return nil
	}

	var reminders []Reminder
	if err := json.Unmarshal([]byte(blob), &reminders); err != nil {
		return fmt.Errorf("разбор напоминаний: %w", err)
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()
	for _, r := range reminders {
		if r.ID == "" {
			continue
		}
		n.pending[r.ID] = r
	}

	logger.Info("Notifier: Напоминания восстановлены", zap.Int("count", len(n.pending)))
	return nil
}

func (n *Notifier) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return n.enabled, nil
}

func (n *Notifier) Schedule(ctx context.Context, title, body string, at time.Time) (string, error) {
	if !n.enabled {
		return "", ErrPermissionDenied
	}
	if !at.After(n.clock()) {
		return "", ErrInvalidTrigger
	}

	reminder := Reminder{
		ID:    uuid.NewString(),
		Title: title,
		Body:  body,
		At:    at.UTC(),
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.pending[reminder.ID] = reminder
	if err := n.saveLocked(ctx); err != nil {
		delete(n.pending, reminder.ID)
		return "", err
	}

	logger.Debug("Notifier: Напоминание запланировано",
		zap.String("notification_id", reminder.ID),
		zap.Time("trigger", reminder.At))
	return reminder.ID, nil
}

func (n *Notifier) Cancel(ctx context.Context, id string) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	reminder, ok := n.pending[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNotification, id)
	}

	delete(n.pending, id)
	if err := n.saveLocked(ctx); err != nil {
		n.pending[id] = reminder
		return err
	}

	logger.Debug("Notifier: Напоминание отменено", zap.String("notification_id", id))
	return nil
}

// PopDue removes and returns up to limit reminders due at or before now, earliest first.
// A non-positive limit means no limit.
func (n *Notifier) PopDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	var due []Reminder
	for _, r := range n.pending {
		if !r.At.After(now) {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}

	sortReminders(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for _, r := range due {
		delete(n.pending, r.ID)
	}
	if err := n.saveLocked(ctx); err != nil {
		for _, r := range due {
			n.pending[r.ID] = r
		}
		return nil, err
	}
	return due, nil
}

// Pending returns the scheduled reminders ordered by trigger time.
func (n *Notifier) Pending() []Reminder {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.listLocked()
}

func (n *Notifier) listLocked() []Reminder {
	res := make([]Reminder, 0, len(n.pending))
	for _, r := range n.pending {
		res = append(res, r)
	}
	sortReminders(res)
	return res
}

func (n *Notifier) saveLocked(ctx context.Context) error {
	if n.kv == nil {
		return nil
	}

	blob, err := json.Marshal(n.listLocked())
	if err != nil {
		return fmt.Errorf("сериализация напоминаний: %w", err)
	}
	if err := n.kv.Set(ctx, n.key, string(blob)); err != nil {
		return fmt.Errorf("сохранение напоминаний: %w", err)
	}
	return nil
}

func sortReminders(reminders []Reminder) {
	slices.SortFunc(reminders, func(a, b Reminder) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
