// Package memory implements an in-process artifact cache.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/stats"
)

// Compile-time check that Backend implements artifact.Cache.
var _ artifact.Cache = (*Backend)(nil)

// Backend is a thread-safe in-memory cache. Reads run concurrently; writes
// are serialised so a deeper entry is never replaced by a shallower one.
type Backend struct {
	strategy  artifact.Strategy
	collector stats.Collector

	mu     sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy artifact.Strategy, collector stats.Collector) *Backend {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Backend{
		strategy:  strategy,
		collector: collector,
	}
}

// Get returns a copy of the artifact satisfying key.
func (b *Backend) Get(_ context.Context, key artifact.Key) (*artifact.Artifact, bool) {
	val, ok := b.strategy.Get(key.Slot())
	if ok && val.Satisfies(key) {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricCacheHits, 1)
		return val.Clone(), true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricCacheMisses, 1)
	return nil, false
}

// Set stores a copy of a unless a deeper entry already exists.
func (b *Backend) Set(_ context.Context, a *artifact.Artifact) {
	if a == nil {
		return
	}
	slot := a.Key().Slot()

	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.strategy.Peek(slot); ok && old.Depth > a.Depth {
		return
	}
	if evicted := b.strategy.Add(slot, a.Clone()); evicted {
		b.collector.IncCounter(stats.MetricCacheEvictions, 1)
	}
	b.collector.SetGauge(stats.MetricCacheSize, int64(b.strategy.Len()))
}

// Stats returns current cache statistics.
func (b *Backend) Stats() artifact.Stats {
	return artifact.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}

// Entries returns copies of every live entry, least recently used first.
func (b *Backend) Entries() []*artifact.Artifact {
	vals := b.strategy.Values()
	out := make([]*artifact.Artifact, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.Clone())
	}
	return out
}

// Len returns the number of items in the cache.
func (b *Backend) Len() int {
	return b.strategy.Len()
}

// Purge removes every entry. Statistics are kept.
func (b *Backend) Purge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strategy.Purge()
	b.collector.SetGauge(stats.MetricCacheSize, 0)
}
