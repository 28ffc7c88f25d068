// Package kv defines the key-value persistence port the ledger writes its snapshot through.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for absent keys
var ErrNotFound = errors.New("key not found")

// Store persists opaque string values under string keys
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove is a no-op for absent keys.
	Remove(ctx context.Context, key string) error
}
