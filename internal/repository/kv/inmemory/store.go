package inmemory

import (
	"context"
	"sync"

	"todoList/internal/logger"
	repo "todoList/internal/repository"

	"go.uber.org/zap"
)

type Storage struct {
	storage map[string]string
	mtx     *sync.RWMutex
	closed  bool
}

func NewStorage() *Storage {
	return &Storage{
		storage: make(map[string]string),
		mtx:     &sync.RWMutex{},
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return "", repo.ErrClosed
	}
	value, ok := s.storage[key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return repo.ErrClosed
	}
	s.storage[key] = value
	logger.Debug("Repository: Значение записано", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (s *Storage) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.closed = true
	return nil
}
