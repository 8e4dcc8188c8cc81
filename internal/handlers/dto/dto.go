package dto

import (
	"time"

	"todoList/internal/models/task"
)

type TaskRequest struct {
	Text         string     `json:"text"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	ReminderDate *time.Time `json:"reminderDate"`
}

// ToDraft keeps an unrecognised priority as is so the store reports it as a validation error.
func (r TaskRequest) ToDraft() task.Draft {
	priority, ok := task.ParsePriority(r.Priority)
	if !ok {
		priority = task.Priority(r.Priority)
	}

	reminder := task.WithoutReminder()
	if r.ReminderDate != nil {
		reminder = task.WithReminder(*r.ReminderDate)
	}

	return task.NewDraft(r.Text,
		task.WithPriority(priority),
		task.WithCategory(r.Category),
		reminder,
	)
}

type TaskResponse struct {
	ID             int64      `json:"id"`
	Text           string     `json:"text"`
	Completed      bool       `json:"completed"`
	Priority       string     `json:"priority"`
	Category       string     `json:"category"`
	ReminderDate   *time.Time `json:"reminderDate"`
	NotificationID *string    `json:"notificationId"`
	HasReminder    bool       `json:"hasReminder"`
}

func FromTask(t task.Task) TaskResponse {
	res := TaskResponse{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  string(t.Priority),
		Category:  t.Category,
	}
	if at, ok := t.ReminderDate.Get(); ok {
		res.ReminderDate = &at
	}
	if id, ok := t.NotificationID.Get(); ok {
		res.NotificationID = &id
		res.HasReminder = true
	}
	return res
}

func FromTaskList(tasks []task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type EventResponse struct {
	Type    string    `json:"type"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}
