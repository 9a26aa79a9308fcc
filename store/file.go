package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// File stores a document as an indented JSON file on an afero filesystem.
//
// Saves go through a temporary sibling file and a rename, so readers never
// observe a half-written document.
type File[T any] struct {
	fs    afero.Fs
	path  string
	empty Empty[T]
}

// NewFile creates a file-backed document at path on fs.
func NewFile[T any](fs afero.Fs, path string, empty Empty[T]) *File[T] {
	return &File[T]{fs: fs, path: path, empty: empty}
}

// Path returns the location of the document.
func (f *File[T]) Path() string {
	return f.path
}

// Load reads the document. A missing file yields empty(); any other read
// or decode failure is returned.
func (f *File[T]) Load(_ context.Context) (T, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f.empty(), nil
		}
		var zero T
		return zero, fmt.Errorf("reading %s: %w", f.path, err)
	}
	v, err := decode(data, f.empty)
	if err != nil {
		return v, fmt.Errorf("%s: %w", f.path, err)
	}
	return v, nil
}

// Save writes the whole document, creating the parent directory if needed.
func (f *File[T]) Save(_ context.Context, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}
