// Package location opens a blob store from a location string.
//
// Supported forms:
//
//	/var/lib/lookahead          local directory
//	file:///var/lib/lookahead   local directory
//	gs://bucket/prefix          Google Cloud Storage
//	s3://bucket/prefix?region=eu-west-1&endpoint=http://localhost:9000
//	mem://                      process memory
package location

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/blob/diskblob"
	"github.com/discochess/lookahead/internal/blob/gcsblob"
	"github.com/discochess/lookahead/internal/blob/memblob"
	"github.com/discochess/lookahead/internal/blob/s3blob"
)

// ErrInvalid indicates a location that names no usable store.
var ErrInvalid = errors.New("location: invalid blob location")

// Open returns the store at loc.
func Open(ctx context.Context, loc string) (blob.Store, error) {
	if loc == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if !strings.Contains(loc, "://") {
		return opened(diskblob.New(loc))
	}

	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "file":
		return opened(diskblob.New(u.Path))
	case "mem":
		return memblob.New(), nil
	case "gs":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no bucket", ErrInvalid, loc)
		}
		return opened(gcsblob.New(ctx, u.Host, gcsblob.WithPrefix(prefix)))
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no bucket", ErrInvalid, loc)
		}
		opts := []s3blob.Option{s3blob.WithPrefix(prefix)}
		q := u.Query()
		if r := q.Get("region"); r != "" {
			opts = append(opts, s3blob.WithRegion(r))
		}
		if ep := q.Get("endpoint"); ep != "" {
			opts = append(opts, s3blob.WithEndpoint(ep))
		}
		return opened(s3blob.New(ctx, u.Host, opts...))
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalid, u.Scheme)
	}
}

// opened keeps a typed nil store out of the returned interface.
func opened[S blob.Store](s S, err error) (blob.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
