package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"efaktur-validator/internal/shared/storage/object"
)

// Store implements object.Source over a local directory.
type Store struct {
	baseDir string
}

// New creates a new local object source rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}

	clean := filepath.Clean(filepath.FromSlash(storageKey))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return object.Object{}, fmt.Errorf("open %q: %w", storageKey, object.ErrInvalidKey)
	}

	fullPath := filepath.Join(s.baseDir, clean)
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return object.Object{}, fmt.Errorf("open %s: %w", storageKey, object.ErrNotFound)
		}
		return object.Object{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return object.Object{}, err
	}
	if info.IsDir() {
		f.Close()
		return object.Object{}, fmt.Errorf("open %s: %w", storageKey, object.ErrNotFound)
	}

	return object.Object{
		Body:        f,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(clean))),
		SizeBytes:   info.Size(),
	}, nil
}

var _ object.Source = (*Store)(nil)
