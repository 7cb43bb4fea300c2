// Package blob stores rendered certificate documents. The core only keeps the
// returned reference; bytes live in the backing store.
package blob

import (
	"context"
)

// Object is a fetched document.
type Object struct {
	Data        []byte
	ContentType string
}

// Store persists opaque documents.
// Error Contract:
//   - Get returns sentinel.ErrNotFound for an unknown reference
//   - transport and backend failures are returned wrapped; GuardedStore maps them to sentinel.ErrUnavailable
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) (*Object, error)
}
