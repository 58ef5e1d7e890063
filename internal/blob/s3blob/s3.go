// Package s3blob implements an AWS S3 blob store.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/lookahead/internal/blob"
)

// Compile-time check that Store implements blob.Store.
var _ blob.Store = (*Store)(nil)

// API is the subset of the S3 client used by Store.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Compile-time check that the SDK client satisfies API.
var _ API = (*s3.Client)(nil)

// Store is an AWS S3 storage backend.
type Store struct {
	client API
	bucket string
	prefix string
}

// Option configures the client and key layout of a Store.
type Option func(*settings)

type settings struct {
	prefix   string
	region   string
	endpoint string
}

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = blob.NormalizePrefix(prefix) }
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *settings) { s.region = region }
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like
// MinIO). Path-style addressing is enabled with it.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// New creates a new S3 store from the default AWS configuration chain.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Store, error) {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	var loadOpts []func(*config.LoadOptions) error
	if st.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(st.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if st.endpoint != "" {
			o.BaseEndpoint = aws.String(st.endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, bucketName, st.prefix), nil
}

// NewWithClient creates a store from an existing client.
func NewWithClient(client API, bucketName, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucketName,
		prefix: blob.NormalizePrefix(prefix),
	}
}

// Read returns the content of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", key, err)
	}
	return data, nil
}

// Write uploads data to the named object.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Close releases resources. The S3 client needs no explicit closing.
func (s *Store) Close() error {
	return nil
}

func (s *Store) key(name string) (string, error) {
	if err := blob.ValidateName(name); err != nil {
		return "", err
	}
	return s.prefix + name, nil
}
