package artifact

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces an artifact on a cache miss.
type ComputeFunc func(ctx context.Context) (*Artifact, error)

// Loader reads through a cache and collapses concurrent computations of the
// same key into one call.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader creates a loader over c.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader) Cache() Cache {
	return l.cache
}

// GetOrCompute returns the cached artifact for key, or runs fn and caches
// its result. hit reports whether the result came from the cache or from a
// computation shared with a concurrent caller. A nil artifact from fn is
// returned as is and not cached.
func (l *Loader) GetOrCompute(ctx context.Context, key Key, fn ComputeFunc) (a *Artifact, hit bool, err error) {
	if a, ok := l.cache.Get(ctx, key); ok {
		return a, true, nil
	}

	v, err, shared := l.group.Do(key.String(), func() (any, error) {
		if a, ok := l.cache.Get(ctx, key); ok {
			return loaded{artifact: a, cached: true}, nil
		}
		a, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if a != nil {
			l.cache.Set(ctx, a)
		}
		return loaded{artifact: a}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(loaded)
	a = res.artifact
	if shared {
		a = a.Clone()
	}
	return a, res.cached || shared, nil
}

type loaded struct {
	artifact *Artifact
	cached   bool
}
