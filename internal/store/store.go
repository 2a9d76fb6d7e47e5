package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")

	// ErrCorrupt is returned by Get when the stored bytes cannot be read back.
	ErrCorrupt = errors.New("value corrupt")
)

// Store is a durable, key-addressable byte store. Writes are visible in full
// or not at all once the call returns.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// ListKeys returns every key in ascending order.
	ListKeys(ctx context.Context) ([]string, error)
}
