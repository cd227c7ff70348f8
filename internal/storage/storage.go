// Package storage provides the key-value blob persistence the record store
// writes through. Each key holds one whole JSON-serialized collection; there
// are no partial updates and no cross-key transactions.
package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// KV is the persistence contract: opaque blobs behind string keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) error
	Close() error
}

// Well-known keys for the persisted state layout.
const (
	KeyUsers        = "taskboard:users"
	KeyTasks        = "taskboard:tasks"
	KeyEditRequests = "taskboard:edit_requests"
	KeySessions     = "taskboard:sessions"
	KeyConfig       = "taskboard:config"
)
