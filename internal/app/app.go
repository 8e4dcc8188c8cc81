package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"todoList/internal/config"
	"todoList/internal/handlers"
	"todoList/internal/logger"
	"todoList/internal/middleware"
	"todoList/internal/notification/local"
	"todoList/internal/repository/kv/inmemory"
	"todoList/internal/repository/kv/postgres"
	"todoList/internal/repository/kv/sqlite"
	"todoList/internal/service"
	"todoList/internal/worker"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type storage interface {
	service.KeyValueStore
	Close() error
}

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository storage // интерфейс!
	store      *service.TaskStore
	notifier   *local.Notifier
	worker     *worker.ReminderWorker
	shutdowns  []func(context.Context) error // функции для graceful shutdown

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(cfg *config.Config) *App {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &App{
		config:     cfg,
		shutdowns:  make([]func(context.Context) error, 0),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Init builds every component. On error the components created so far are
// released by Shutdown.
func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
		return nil
	})

	repo, err := openStorage(ctx, a.config)
	if err != nil {
		return fmt.Errorf("инициализация хранилища: %w", err)
	}
	a.repository = repo
	a.shutdowns = append(a.shutdowns, func(context.Context) error {
		logger.Info("Закрытие хранилища...")
		return repo.Close()
	})

	a.notifier = local.New(repo, a.config.Notifications.Enabled,
		local.WithStorageKey(a.config.Notifications.StorageKey))
	if err := a.notifier.Load(ctx); err != nil {
		logger.Warn("Напоминания не восстановлены", zap.Error(err))
	}

	a.store = service.NewTaskStore(repo, a.notifier,
		service.WithStorageKey(a.config.Storage.Key),
		service.WithReminderTitle(a.config.Notifications.Title),
		service.WithWriteTimeout(a.config.Storage.WriteTimeout),
	)
	if err := a.store.Initialize(ctx); err != nil {
		return fmt.Errorf("инициализация хранилища задач: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(ctx context.Context) error {
		logger.Info("Сохранение задач...")
		return multierr.Append(a.store.Flush(ctx), a.store.Close(ctx))
	})

	interval := a.config.Notifications.CheckInterval
	batch := a.config.Notifications.BatchSize
	a.worker = worker.NewReminderWorker(a.notifier, a.deliverReminder, &interval, &batch)

	a.router = a.setupRouter()
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           middleware.Tracing("todo-api")(a.router),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return a.baseCtx },
	}

	logger.Info("Приложение инициализировано",
		zap.String("storage", a.config.Storage.Type),
		zap.String("addr", a.server.Addr))
	return nil
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()
	taskHandler := handlers.NewTaskHandler(a.store)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(a.config.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
		taskHandler.Routes(r)
	})
	r.Get("/events", taskHandler.Events) // GET /events

	return r
}

func (a *App) deliverReminder(_ context.Context, r local.Reminder) {
	logger.Info("Напоминание сработало",
		zap.String("notification_id", r.ID),
		zap.String("body", r.Body),
		zap.Time("trigger", r.At))
	a.store.Alert(fmt.Sprintf("%s: %s", r.Title, r.Body))
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Store() *service.TaskStore {
	return a.store
}

// Run serves HTTP and fires reminders until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("запуск сервера: %w", err)
	}
	return a.serve(ctx, listener)
}

func (a *App) serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP: Сервер запущен", zap.String("addr", listener.Addr().String()))
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("работа сервера: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("HTTP: Остановка сервера")

		// event streams only end when their context does
		a.cancelBase()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown releases components in reverse order of creation and reports every failure.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancelBase()

	var err error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.shutdowns[i](ctx))
	}
	a.shutdowns = nil
	return err
}

func openStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	switch cfg.Storage.Type {
	case config.StorageInMemory:
		return inmemory.NewStorage(), nil
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.Storage.Path)
	case config.StoragePostgres:
		return postgres.New(ctx, cfg.Database.URL, postgres.Options{
			MaxConnections: cfg.Database.MaxConnections,
			MinConnections: cfg.Database.MinConnections,
			IdleTimeout:    cfg.Database.IdleTimeout,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		})
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.Storage.Type)
	}
}
