// Package storage defines the durable client-local key/value store the
// credential layer persists into. It plays the role a browser's
// localStorage plays for a web client: string keys, string values,
// survives restarts, one writer at a time.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Storage is implemented by storage/sqlite (durable) and storage/memory
// (process lifetime, used by tests and the --ephemeral CLI flag).
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
