// Package storage holds the durable key/value stores that back per-browser
// session and cart state. Values are opaque strings; callers own encoding.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("storage: key not found")

// KV is a durable string store with optional per-key expiry.
// A ttl of zero or less stores the value without expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
