// Package evaldb implements engine.Evaluator as lookups into a precomputed
// evaluation database: sorted JSONL records split into compressed shards
// by a shard strategy, described by a manifest, kept in any blob store.
package evaldb

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/codecs"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/stats"
)

// Compile-time check that Evaluator implements engine.Evaluator.
var _ engine.Evaluator = (*Evaluator)(nil)

// DefaultShardCacheSize is the number of decompressed shards kept in memory.
const DefaultShardCacheSize = 64

// Config configures Open. Zero values select defaults.
type Config struct {
	ShardCacheSize int
	Stats          stats.Collector
	Logger         *zap.Logger
}

// Evaluator serves evaluations from the database.
// An Evaluator is safe for concurrent use by multiple goroutines.
type Evaluator struct {
	store    blob.Store
	manifest *Manifest
	strategy Strategy
	codec    codec.Codec
	shards   *lru.Cache[int, []byte]
	stats    stats.Collector
	logger   *zap.Logger
}

// Open reads the manifest from s and returns an evaluator over it.
func Open(ctx context.Context, s blob.Store, cfg Config) (*Evaluator, error) {
	m, err := ReadManifest(ctx, s)
	if err != nil {
		return nil, err
	}
	strategy, err := StrategyByName(m.Strategy)
	if err != nil {
		return nil, err
	}
	c, err := codecs.ByName(m.Compression)
	if err != nil {
		return nil, err
	}

	size := cfg.ShardCacheSize
	if size <= 0 {
		size = DefaultShardCacheSize
	}
	shards, err := lru.New[int, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating shard cache: %w", err)
	}

	if cfg.Stats == nil {
		cfg.Stats = stats.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	e := &Evaluator{
		store:    s,
		manifest: m,
		strategy: strategy,
		codec:    c,
		shards:   shards,
		stats:    cfg.Stats,
		logger:   cfg.Logger.Named("evaldb"),
	}
	e.logger.Debug("evaluation database opened",
		zap.Int("totalShards", m.TotalShards),
		zap.String("strategy", m.Strategy),
		zap.Int64("records", m.RecordCount),
	)
	return e, nil
}

// Version identifies the database build.
func (e *Evaluator) Version() string {
	return fmt.Sprintf("evaldb/v%d/%s/%d", e.manifest.Version, e.manifest.Strategy, e.manifest.BuiltAt.Unix())
}

// Manifest returns the database manifest.
func (e *Evaluator) Manifest() Manifest {
	return *e.manifest
}

// Evaluate looks up fen and returns up to lines stored variations. The
// depth argument is advisory: the deepest stored analysis is returned and
// each line reports its actual depth.
func (e *Evaluator) Evaluate(ctx context.Context, fenStr string, depth, lines int) ([]engine.Line, error) {
	key, err := fen.Normalize(fenStr)
	if err != nil {
		return nil, fmt.Errorf("normalizing position: %w", err)
	}

	id := e.strategy.ShardID(key, e.manifest.TotalShards)
	data, err := e.shard(ctx, id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", engine.ErrNoEvaluation, key)
		}
		return nil, fmt.Errorf("fetching shard %d: %w", id, err)
	}

	rec, err := search(data, key)
	if err != nil {
		if errors.Is(err, errNotInShard) {
			return nil, fmt.Errorf("%w: %s", engine.ErrNoEvaluation, key)
		}
		return nil, err
	}

	n := engine.ClampLines(lines)
	best, ok := rec.best(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoEvaluation, key)
	}
	if best.Depth < depth {
		e.logger.Debug("stored analysis shallower than requested",
			zap.String("key", key), zap.Int("stored", best.Depth), zap.Int("requested", depth))
	}
	return best.toLines(n), nil
}

// Close closes the underlying store.
func (e *Evaluator) Close() error {
	e.shards.Purge()
	return e.store.Close()
}

func (e *Evaluator) shard(ctx context.Context, id int) ([]byte, error) {
	if data, ok := e.shards.Get(id); ok {
		return data, nil
	}

	compressed, err := e.store.Read(ctx, codec.Path(e.codec, shardName(id)))
	if err != nil {
		return nil, err
	}
	data, err := codec.Decode(e.codec, compressed)
	if err != nil {
		return nil, err
	}
	e.shards.Add(id, data)
	return data, nil
}
