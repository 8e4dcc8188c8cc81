package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"todoList/internal/handlers/dto"
	"todoList/internal/logger"
	"todoList/internal/service"

	"go.uber.org/zap"
)

const eventBuffer = 32

// Events streams store events as server-sent events until the client goes away.
// A slow client loses events instead of blocking the store.
func (s *TaskHandler) Events(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN: Подписка на события")

	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, http.StatusInternalServerError, "потоковая передача не поддерживается")
		return
	}

	events := make(chan service.Event, eventBuffer)
	unsubscribe := s.TaskService.Subscribe(func(ev service.Event) {
		select {
		case events <- ev:
		default:
			logger.Debug("HTTP: Событие пропущено, клиент не успевает", zap.String("type", string(ev.Type)))
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info("HTTP: Подписка на события завершена", zap.String("client_ip", r.RemoteAddr))
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				logger.Warn("HTTP: Ошибка отправки события", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev service.Event) error {
	payload := dto.EventResponse{
		Type:    string(ev.Type),
		Message: ev.Message,
		At:      ev.At,
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
