// Package blob defines named-object storage used to persist evaluation
// database shards and artifact cache snapshots.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an object does not exist in the store.
	ErrNotFound = errors.New("blob: object not found")

	// ErrInvalidName is returned for names that are empty or escape the
	// store root.
	ErrInvalidName = errors.New("blob: invalid object name")
)

// Store defines the interface for storage backends.
// Names are slash-separated relative paths such as "shards/00042.zst".
type Store interface {
	// Read returns the content of the named object.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the content of the named object.
	Write(ctx context.Context, name string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// ValidateName rejects empty, absolute and parent-relative names.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "" {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// NormalizePrefix returns prefix with exactly one trailing slash, or the
// empty string.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
