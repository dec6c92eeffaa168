// Package objects stores message attachment blobs.
package objects

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under a key
var ErrNotFound = errors.New("object not found")

// Info describes a stored object
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store keeps opaque blobs under keys
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the object; callers close the reader
	Get(ctx context.Context, key string) (io.ReadCloser, *Info, error)
	Remove(ctx context.Context, key string) error
	// URL returns a time-limited download link, or "" when the store cannot
	// issue one and the object must be streamed through Get
	URL(ctx context.Context, key, fileName string, expiry time.Duration) (string, error)
}
