package service

import (
	"context"
	"time"
)

// KeyValueStore persists string blobs under fixed keys.
// Get returns repository.ErrNotFound when nothing is stored under the key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	HealthCheck(ctx context.Context) error
}

type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, title, body string, at time.Time) (string, error)
	Cancel(ctx context.Context, id string) error
}
