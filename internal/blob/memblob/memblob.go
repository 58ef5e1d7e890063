// Package memblob provides an in-memory blob store for tests.
package memblob

import (
	"context"
	"sync"

	"github.com/discochess/lookahead/internal/blob"
)

// Compile-time check that Store implements blob.Store.
var _ blob.Store = (*Store)(nil)

// Store is an in-memory blob store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Read returns a copy of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return clone(data), nil
}

// Write stores a copy of data so caller mutations do not affect the store.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := blob.ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = clone(data)
	return nil
}

// Names returns the stored object names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for name := range s.objects {
		out = append(out, name)
	}
	return out
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
