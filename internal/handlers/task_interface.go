package handlers

import (
	"context"

	"todoList/internal/models/task"
	"todoList/internal/service"
)

type Service interface {
	Add(ctx context.Context, draft task.Draft) (task.Task, error)
	Update(ctx context.Context, id int64, draft task.Draft) (task.Task, error)
	ToggleComplete(ctx context.Context, id int64) (task.Task, error)
	Delete(ctx context.Context, id int64) error
	Get(id int64) (task.Task, error)
	Project(filter task.Filter, sortBy task.SortBy) []task.Task
	Subscribe(fn func(service.Event)) func()
	HealthCheck(ctx context.Context) error
}

var _ Service = (*service.TaskStore)(nil)
