package task

import (
	"strings"
	"time"
)

type Task struct {
	ID             int64               `json:"id"`
	Text           string              `json:"text"`
	Completed      bool                `json:"completed"`
	Priority       Priority            `json:"priority"`
	Category       string              `json:"category"`
	ReminderDate   Optional[time.Time] `json:"reminderDate"`
	NotificationID Optional[string]    `json:"notificationId"`
}

type Priority string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

// Weight orders priorities for sorting; unknown values weigh 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Weight() > 0
}

// ParsePriority accepts any letter case; an empty string means PriorityLow.
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityLow, true
	}
	p := Priority(s)
	return p, p.Valid()
}

// HasReminderAfter reports whether the task carries a reminder strictly later than now.
func (t Task) HasReminderAfter(now time.Time) bool {
	at, ok := t.ReminderDate.Get()
	return ok && at.After(now)
}
