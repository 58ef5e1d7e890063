// Package gcsblob implements a Google Cloud Storage blob store.
package gcsblob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/discochess/lookahead/internal/blob"
)

// Compile-time check that Store implements blob.Store.
var _ blob.Store = (*Store)(nil)

// Store is a Google Cloud Storage backend.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = blob.NormalizePrefix(prefix)
	}
}

// New creates a new GCS store using application default credentials.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return NewWithClient(client, bucketName, opts...), nil
}

// NewWithClient creates a store from an existing client. The store takes
// ownership of the client and closes it on Close.
func NewWithClient(client *storage.Client, bucketName string, opts ...Option) *Store {
	s := &Store{
		client: client,
		bucket: client.Bucket(bucketName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the content of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}

	reader, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader for %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Write uploads data to the named object.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", key, err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return s.client.Close()
}

// key returns the full object key for a name.
func (s *Store) key(name string) (string, error) {
	if err := blob.ValidateName(name); err != nil {
		return "", err
	}
	return s.prefix + name, nil
}
