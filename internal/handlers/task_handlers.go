package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"todoList/internal/handlers/dto"
	"todoList/internal/logger"
	"todoList/internal/models/task"
	"todoList/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "todo-list"

type TaskHandler struct {
	TaskService Service
	heartbeat   time.Duration
}

func NewTaskHandler(taskService Service) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		heartbeat:   25 * time.Second,
	}
}

// Routes mounts the task API on r. The event stream is mounted separately
// because it must not run under a request timeout.
func (s *TaskHandler) Routes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.ListTasks) // GET /tasks?filter=&sort=
		r.Post("/", s.PostTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTaskByID)       // GET /tasks/{id}
			r.Put("/", s.UpdateTaskByID)    // PUT /tasks/{id}
			r.Delete("/", s.DeleteTaskByID) // DELETE /tasks/{id}
			r.Post("/toggle", s.ToggleTask) // POST /tasks/{id}/toggle
		})
	})

	r.Get("/health", s.HealthCheck)
}

func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	filter, ok := task.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", "filter"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное значение filter: ожидается all, completed или pending")
		return
	}

	sortBy, ok := task.ParseSortBy(r.URL.Query().Get("sort"))
	if !ok {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", "sort"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное значение sort: ожидается none, priority или date")
		return
	}

	tasks := s.TaskService.Project(filter, sortBy)

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(tasks)),
		toPayload("count", len(tasks)),
		toPayload("filter", filter),
		toPayload("sort", sortBy),
	)
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	request, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	created, err := s.TaskService.Add(r.Context(), request.ToDraft())
	if err != nil && !service.IsWarning(err) {
		handleServiceError(w, r, err, "create_task")
		return
	}

	payload := []Payload{toPayload("task", dto.FromTask(created))}
	if err != nil {
		payload = append(payload, toPayload("warning", warningMessage(err)))
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, payload...)
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
			toPayload("error", err.Error()),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("time", time.Now().UTC()),
	)
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskIDOrError(w, r)
	if !ok {
		return
	}

	found, err := s.TaskService.Get(id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.Int64("task_id", found.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(found)))
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskIDOrError(w, r)
	if !ok {
		return
	}

	request, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	updated, err := s.TaskService.Update(r.Context(), id, request.ToDraft())
	if err != nil && !service.IsWarning(err) {
		handleServiceError(w, r, err, "update_task")
		return
	}

	payload := []Payload{toPayload("task", dto.FromTask(updated))}
	if err != nil {
		payload = append(payload, toPayload("warning", warningMessage(err)))
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.Int64("task_id", updated.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, payload...)
}

func (s *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskIDOrError(w, r)
	if !ok {
		return
	}

	toggled, err := s.TaskService.ToggleComplete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "toggle_task")
		return
	}

	logger.Info("HTTP_OUT: Статус задачи изменён",
		zap.Int64("task_id", toggled.ID),
		zap.Bool("completed", toggled.Completed),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(toggled)))
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskIDOrError(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func taskIDOrError(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := parseTaskID(r)
	if !ok {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("id", chi.URLParam(r, "id")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "id должен быть положительным целым числом")
		return 0, false
	}
	return id, true
}

func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (dto.TaskRequest, bool) {
	var request dto.TaskRequest

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return request, false
	}

	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return request, false
	}
	return request, true
}

func warningMessage(err error) string {
	var busErr *service.BusinessError
	if errors.As(err, &busErr) {
		return busErr.Message
	}
	return err.Error()
}
