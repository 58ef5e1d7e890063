// Package lru implements a size- and age-bounded LRU eviction strategy.
package lru

import (
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/discochess/lookahead/internal/artifact"
)

// ErrInvalidCapacity indicates a non-positive capacity.
var ErrInvalidCapacity = errors.New("lru: capacity must be positive")

// Compile-time check that Strategy implements artifact.Strategy.
var _ artifact.Strategy = (*Strategy)(nil)

// Strategy implements LRU eviction with an optional time-to-live.
type Strategy struct {
	cache *expirable.LRU[string, *artifact.Artifact]
	ttl   time.Duration
}

// New creates a new LRU strategy holding at most capacity entries, each
// expiring ttl after it was added. A zero ttl disables expiry.
func New(capacity int, ttl time.Duration) (*Strategy, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Strategy{
		cache: expirable.NewLRU[string, *artifact.Artifact](capacity, nil, ttl),
		ttl:   ttl,
	}, nil
}

// Get retrieves a value by key and marks it recently used.
func (s *Strategy) Get(key string) (*artifact.Artifact, bool) {
	return s.cache.Get(key)
}

// Peek retrieves a value without touching its recency.
func (s *Strategy) Peek(key string) (*artifact.Artifact, bool) {
	return s.cache.Peek(key)
}

// Add adds a value to the cache.
func (s *Strategy) Add(key string, value *artifact.Artifact) bool {
	return s.cache.Add(key, value)
}

// Values returns the unexpired values, oldest first.
func (s *Strategy) Values() []*artifact.Artifact {
	return s.cache.Values()
}

// Len returns the number of items in the cache.
func (s *Strategy) Len() int {
	return s.cache.Len()
}

// TTL returns the entry lifetime; zero means entries never expire.
func (s *Strategy) TTL() time.Duration {
	return s.ttl
}

// Purge removes every entry.
func (s *Strategy) Purge() {
	s.cache.Purge()
}
