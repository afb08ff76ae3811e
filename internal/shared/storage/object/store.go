package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that are empty, absolute or escape the source root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object is an opened stored object. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	SizeBytes   int64
}

// Source defines read-only access to stored binary objects.
type Source interface {
	Open(ctx context.Context, storageKey string) (Object, error)
}
