package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"todoList/internal/repository"
	"todoList/internal/repository/kv/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestStorage_GetSet тестирует чтение и запись по ключу
func TestStorage_GetSet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	_, err := storage.Get(ctx, "tasks")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, storage.Set(ctx, "tasks", "[]"))
	value, err := storage.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	require.NoError(t, storage.Set(ctx, "tasks", `[{"id":1}]`))
	value, err = storage.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, value)
}

// TestStorage_SetCancelled тестирует запись с отменённым контекстом
func TestStorage_SetCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	storage := inmemory.NewStorage()
	assert.ErrorIs(t, storage.Set(ctx, "k", "v"), context.Canceled)

	_, err := storage.Get(context.Background(), "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_Concurrent тестирует конкурентный доступ
func TestStorage_Concurrent(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, storage.Set(ctx, key, key))
			_, _ = storage.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, err := storage.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, value)
	}
}

// TestStorage_Closed тестирует доступ после закрытия
func TestStorage_Closed(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()
	require.NoError(t, storage.Set(ctx, "tasks", "[]"))

	require.NoError(t, storage.Close())

	_, err := storage.Get(ctx, "tasks")
	assert.ErrorIs(t, err, repository.ErrClosed)
	assert.ErrorIs(t, storage.Set(ctx, "tasks", "[]"), repository.ErrClosed)
}
