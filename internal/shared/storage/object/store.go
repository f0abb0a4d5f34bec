package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrExists is returned when a write without overwrite hits an existing key.
	ErrExists = errors.New("object already exists")

	// ErrInvalidKey indicates a key that escapes the store namespace.
	ErrInvalidKey = errors.New("invalid storage key")
)

// PutOptions controls a single write.
type PutOptions struct {
	ContentType string
	Overwrite   bool
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns the public address of a stored key.
	URL(key string) string
}
