package task

import (
	"strings"
	"time"
)

// Draft is the user input for creating or replacing a task.
type Draft struct {
	Text     string
	Priority Priority
	Category string
	Reminder Optional[time.Time]
}

type DraftOption func(*Draft)

// NewDraft trims text and category and applies options over the defaults
// (low priority, no category, no reminder). Nil options are skipped.
func NewDraft(text string, options ...DraftOption) Draft {
	draft := Draft{
		Text:     text,
		Priority: PriorityLow,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&draft)
		}
	}
	draft.Text = strings.TrimSpace(draft.Text)
	draft.Category = strings.TrimSpace(draft.Category)
	return draft
}

func WithPriority(priority Priority) DraftOption {
	if priority == "" {
		return nil
	}
	return func(d *Draft) {
		d.Priority = priority
	}
}

func WithCategory(category string) DraftOption {
	return func(d *Draft) {
		d.Category = category
	}
}

// WithReminder stores the time in UTC without its monotonic reading so the
// value survives a serialization round trip unchanged.
func WithReminder(at time.Time) DraftOption {
	if at.IsZero() {
		return WithoutReminder()
	}
	return func(d *Draft) {
		d.Reminder = Some(at.UTC().Round(0))
	}
}

func WithoutReminder() DraftOption {
	return func(d *Draft) {
		d.Reminder = None[time.Time]()
	}
}

// Blank reports whether the draft text is empty after trimming.
func (d Draft) Blank() bool {
	return strings.TrimSpace(d.Text) == ""
}
