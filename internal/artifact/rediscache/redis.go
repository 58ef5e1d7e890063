// Package rediscache implements a shared artifact cache in Redis.
//
// Each position is stored as one hash at <prefix>:<providerVersion>:<positionKey>
// with one field per depth ("d12"). Changing the provider version moves
// every read to a fresh namespace, so stale entries are never consulted and
// expire on their own.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/stats"
)

// Compile-time check that Cache implements artifact.Cache.
var _ artifact.Cache = (*Cache)(nil)

// DefaultPrefix namespaces keys written by this package.
const DefaultPrefix = "lookahead:artifact"

// Client is the subset of the Redis client used by the cache.
// *redis.Client satisfies it.
type Client interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// Option configures a Cache.
type Option interface {
	apply(*options)
}

type options struct {
	prefix string
	ttl    time.Duration
	stats  stats.Collector
	logger *zap.Logger
}

func defaultOptions() options {
	return options{
		prefix: DefaultPrefix,
		ttl:    24 * time.Hour,
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return optionFunc(func(o *options) {
		o.prefix = strings.TrimSuffix(prefix, ":")
	})
}

// WithTTL sets the time-to-live applied to a position hash on every write.
// Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return optionFunc(func(o *options) {
		o.ttl = ttl
	})
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// Cache is a Redis-backed artifact cache. It is safe for concurrent use.
type Cache struct {
	client Client
	prefix string
	ttl    time.Duration
	stats  stats.Collector
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

// New creates a cache over an existing client.
func New(client Client, opts ...Option) *Cache {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return &Cache{
		client: client,
		prefix: cfg.prefix,
		ttl:    cfg.ttl,
		stats:  cfg.stats,
		logger: cfg.logger.Named("rediscache"),
	}
}

// Dial connects to the Redis server at url, e.g. "redis://localhost:6379/0".
func Dial(url string, opts ...Option) (*Cache, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return New(redis.NewClient(ropts), opts...), nil
}

// Key returns the hash key for a position.
func (c *Cache) Key(version, position string) string {
	return c.prefix + ":" + version + ":" + position
}

// Field returns the hash field for a depth.
func Field(depth int) string {
	return "d" + strconv.Itoa(depth)
}

// Get returns the deepest stored artifact at or beyond key.Depth.
func (c *Cache) Get(ctx context.Context, key artifact.Key) (*artifact.Artifact, bool) {
	fields, err := c.client.HGetAll(ctx, c.Key(key.Version, key.Position)).Result()
	if err != nil {
		c.fail("reading", key, err)
		return c.miss()
	}

	type candidate struct {
		depth int
		val   string
	}
	var candidates []candidate
	for field, val := range fields {
		depth, ok := parseField(field)
		if !ok || depth < key.Depth {
			continue
		}
		candidates = append(candidates, candidate{depth, val})
	}
	// Deepest first; an undecodable field falls through to the next one.
	slices.SortFunc(candidates, func(x, y candidate) int { return y.depth - x.depth })

	var a artifact.Artifact
	found := false
	for _, cand := range candidates {
		a = artifact.Artifact{}
		if err := json.Unmarshal([]byte(cand.val), &a); err != nil {
			c.fail("decoding", key, err)
			continue
		}
		if a.Satisfies(key) {
			found = true
			break
		}
	}
	if !found {
		return c.miss()
	}

	c.hits.Add(1)
	c.stats.IncCounter(stats.MetricCacheHits, 1)
	return &a, true
}

// Set stores a under its depth field. Shallower writes add their own field
// and never shadow a deeper one on read.
func (c *Cache) Set(ctx context.Context, a *artifact.Artifact) {
	if a == nil {
		return
	}
	key := a.Key()
	data, err := json.Marshal(a)
	if err != nil {
		c.fail("encoding", key, err)
		return
	}

	hash := c.Key(key.Version, key.Position)
	if err := c.client.HSet(ctx, hash, Field(a.Depth), data).Err(); err != nil {
		c.fail("writing", key, err)
		return
	}
	if c.ttl > 0 {
		if err := c.client.Expire(ctx, hash, c.ttl).Err(); err != nil {
			c.fail("expiring", key, err)
		}
	}
	c.writes.Add(1)
}

// Stats returns cache statistics. Size counts writes made by this process.
func (c *Cache) Stats() artifact.Stats {
	return artifact.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   int(c.writes.Load()),
	}
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) miss() (*artifact.Artifact, bool) {
	c.misses.Add(1)
	c.stats.IncCounter(stats.MetricCacheMisses, 1)
	return nil, false
}

func (c *Cache) fail(op string, key artifact.Key, err error) {
	c.stats.IncCounter(stats.MetricCacheErrors, 1)
	c.logger.Warn("cache "+op+" failed",
		zap.String("position", key.Position),
		zap.Int("depth", key.Depth),
		zap.Error(err),
	)
}

func parseField(field string) (int, bool) {
	if !strings.HasPrefix(field, "d") {
		return 0, false
	}
	n, err := strconv.Atoi(field[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
