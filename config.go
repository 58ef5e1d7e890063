package lookahead

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/artifact/lru"
	"github.com/discochess/lookahead/internal/artifact/memory"
	"github.com/discochess/lookahead/internal/artifact/rediscache"
	"github.com/discochess/lookahead/internal/artifact/snapshot"
	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/blob/location"
	"github.com/discochess/lookahead/internal/codec/codecs"
	"github.com/discochess/lookahead/internal/config"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/engine/evaldb"
	"github.com/discochess/lookahead/internal/engine/scripted"
	"github.com/discochess/lookahead/internal/engine/uci"
	"github.com/discochess/lookahead/internal/runstore"
)

// NewFromConfig builds an Analyzer from a loaded configuration: the
// evaluator named by cfg.Engine, the cache tiers, the run store and the
// scorer. A cache snapshot at cfg.Cache.Snapshot is restored when present.
// opts are applied after the configured components and take precedence.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (a *Analyzer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The logger and collector come from opts so that every component built
	// here reports through them.
	base := defaultOptions()
	for _, opt := range opts {
		opt.apply(&base)
	}
	logger, collector := base.logger, base.stats

	var owned []closer
	defer func() {
		if err != nil {
			for _, c := range owned {
				_ = c.c.Close()
			}
		}
	}()

	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, err
	}
	built := []Option{
		WithLimits(cfg.ExploreConfig()),
		WithScorer(scorer),
	}

	ev, err := openEvaluator(ctx, cfg.Engine, base, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := ev.(io.Closer); ok {
		owned = append(owned, closer{"evaluator", c})
	}
	built = append(built, WithEvaluator(ev))

	strategy, err := lru.New(cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	var cache artifact.Cache = memory.New(strategy, collector)
	if cfg.Cache.RedisURL != "" {
		shared, err := rediscache.Dial(cfg.Cache.RedisURL,
			rediscache.WithTTL(cfg.Cache.RedisTTL),
			rediscache.WithStats(collector),
			rediscache.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		owned = append(owned, closer{"redis", shared})
		cache = artifact.NewTiered(cache, shared)
	}
	built = append(built, WithCache(cache))

	if cfg.Store.Path != "" {
		runs, err := runstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		owned = append(owned, closer{"run store", runs})
		built = append(built, WithRunStore(runs))
	}

	a, err = New(append(built, opts...)...)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Snapshot != "" {
		a.restore(ctx, cfg.Cache)
	}
	return a, nil
}

// openEvaluator starts the configured evaluator.
func openEvaluator(ctx context.Context, cfg config.Engine, o options, logger *zap.Logger) (engine.Evaluator, error) {
	switch cfg.Kind {
	case "uci":
		ev, err := uci.NewFromPath(cfg.Path,
			map[string]string{
				"Threads": strconv.Itoa(cfg.Threads),
				"Hash":    strconv.Itoa(cfg.HashMB),
			},
			uci.WithPoolSize(cfg.Pool),
			uci.WithAcquireTimeout(cfg.AcquireTimeout),
			uci.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("starting engine: %w", err)
		}
		return ev, nil

	case "evaldb":
		store, err := location.Open(ctx, cfg.Data)
		if err != nil {
			return nil, fmt.Errorf("opening evaluation database: %w", err)
		}
		ev, err := evaldb.Open(ctx, store, evaldb.Config{Stats: o.stats, Logger: logger})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("opening evaluation database: %w", err)
		}
		return ev, nil

	case "scripted":
		ev := scripted.NewEvaluator()
		ev.SetGenerator(scripted.MaterialGenerator(o.rules))
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: unknown engine kind %q", config.ErrInvalid, cfg.Kind)
	}
}

// restore warms the cache from the configured snapshot. A missing or stale
// snapshot is not an error.
func (a *Analyzer) restore(ctx context.Context, cfg config.Cache) {
	logger := a.logger.With(zap.String("snapshot", cfg.Snapshot))

	c, err := codecs.ByName(cfg.Codec)
	if err != nil {
		logger.Warn("snapshot codec", zap.Error(err))
		return
	}
	src, err := location.Open(ctx, cfg.Snapshot)
	if err != nil {
		logger.Warn("opening snapshot location failed", zap.Error(err))
		return
	}
	defer src.Close()

	n, err := a.RestoreSnapshot(ctx, src, c)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		logger.Debug("no snapshot to restore")
	case errors.Is(err, snapshot.ErrMismatch):
		logger.Info("discarding stale snapshot", zap.Error(err))
	case err != nil:
		logger.Warn("restoring snapshot failed", zap.Error(err))
	default:
		logger.Info("cache restored", zap.Int("entries", n))
	}
}
