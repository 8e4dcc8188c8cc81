package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todoList/internal/config"
	"todoList/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: time.Second,
			RateLimit:       1000,
			AllowedOrigins:  []string{"*"},
		},
		Storage: config.StorageConfig{
			Type:         config.StorageInMemory,
			Key:          "tasks",
			WriteTimeout: time.Second,
		},
		Notifications: config.NotificationsConfig{
			Enabled:       true,
			Title:         "Напоминание",
			StorageKey:    "reminders",
			CheckInterval: 10 * time.Millisecond,
			BatchSize:     10,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a := New(cfg)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, a.Shutdown(context.Background()))
	})
	return a
}

func TestApp_TaskLifecycle(t *testing.T) {
	a := newTestApp(t, testConfig())
	h := a.Handler()

	body := bytes.NewBufferString(`{"text": "  Buy milk ", "priority": "medium"}`)
	req := httptest.NewRequest(http.MethodPost, "/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var created struct {
		Task struct {
			ID   int64  `json:"id"`
			Text string `json:"text"`
		} `json:"task"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "Buy milk", created.Task.Text)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks?filter=pending&sort=priority", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Buy milk")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, a.Store().Flush(context.Background()))
	blob, err := a.repository.Get(context.Background(), "tasks")
	require.NoError(t, err)
	assert.Contains(t, blob, "Buy milk")
}

func TestApp_ReminderDelivered(t *testing.T) {
	a := newTestApp(t, testConfig())

	alerts := make(chan service.Event, 4)
	a.Store().Subscribe(func(ev service.Event) {
		if ev.Type == service.EventAlert {
			alerts <- ev
		}
	})

	_, err := a.notifier.Schedule(context.Background(), "Напоминание", "Call mom", time.Now().Add(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, listener) }()

	select {
	case ev := <-alerts:
		assert.Equal(t, "Напоминание: Call mom", ev.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not delivered")
	}

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_UnknownStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = "redis"

	a := New(cfg)
	err := a.Init(context.Background())

	assert.Error(t, err)
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_SQLiteStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = config.StorageSQLite
	cfg.Storage.Path = t.TempDir() + "/todo.db"

	a := newTestApp(t, cfg)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
