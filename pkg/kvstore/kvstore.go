// Package kvstore persists small JSON documents (layout snapshots, widget
// collections, funnel graphs) under string keys.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("kvstore: key not found")

// Entry is a single key/value pair written by Put.
type Entry struct {
	Key   string
	Value []byte
}

// Store is implemented by every backend. Put writes all entries atomically
// where the backend supports it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries ...Entry) error
	Delete(ctx context.Context, keys ...string) error
	Close(ctx context.Context) error
}
