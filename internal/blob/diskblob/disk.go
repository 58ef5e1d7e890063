// Package diskblob implements a filesystem blob store.
package diskblob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/discochess/lookahead/internal/blob"
)

// Compile-time check that Store implements blob.Store.
var _ blob.Store = (*Store)(nil)

// Store keeps objects as files below a root directory.
type Store struct {
	root string
}

// New creates a new disk store rooted at the given directory.
// The directory is created if it does not exist.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &Store{root: root}, nil
}

// Read returns the content of the named file.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the named file atomically by writing a temporary file in
// the same directory and renaming it into place.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(name string) (string, error) {
	if err := blob.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}
