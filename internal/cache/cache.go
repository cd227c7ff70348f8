// Package cache holds short-lived derived state, primarily the aggregate
// statistics snapshot the dashboard refreshes every thirty seconds.
package cache

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	Health() error
	Close() error
}
