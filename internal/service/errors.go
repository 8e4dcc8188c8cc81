package service

import (
	"errors"
	"fmt"
)

const CodeValidation = "VALIDATION_ERROR"
const CodeNotFound = "NOT_FOUND"
const CodePersistence = "PERSISTENCE_ERROR"
const CodeNotification = "NOTIFICATION_ERROR"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(id int64) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("задача %d не найдена", id),
		Details: map[string]any{
			"resource": "task",
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewPersistenceError(op string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("ошибка хранилища при операции %s", op),
		Details: map[string]any{
			"operation": op,
		},
		Err: err,
	}
}

func NewNotificationError(op string, taskID int64, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeNotification,
		Message: "не удалось настроить напоминание",
		Details: map[string]any{
			"operation": op,
			"task_id":   taskID,
		},
		Err: err,
	}
}

func codeOf(err error) string {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr.Code
	}
	return ""
}

// IsWarning reports errors that accompany a successful mutation: the task was
// stored, only its reminder could not be set up.
func IsWarning(err error) bool {
	return codeOf(err) == CodeNotification
}

func IsNotFound(err error) bool {
	return codeOf(err) == CodeNotFound
}

func IsValidation(err error) bool {
	return codeOf(err) == CodeValidation
}
