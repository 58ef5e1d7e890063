package lookahead

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/explore"
	"github.com/discochess/lookahead/internal/rules"
	"github.com/discochess/lookahead/internal/rules/notnilrules"
	"github.com/discochess/lookahead/internal/runstore"
	"github.com/discochess/lookahead/internal/stats"
	"github.com/discochess/lookahead/internal/themes"
)

// Bounds of the in-process artifact cache used when no cache is configured.
const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = time.Hour
)

// Option configures an Analyzer.
type Option interface {
	apply(*options)
}

// options holds the analyzer configuration.
type options struct {
	evaluator engine.Evaluator
	predictor engine.Predictor
	rules     rules.Provider
	cache     artifact.Cache
	limits    explore.Config
	scorer    *criticality.Scorer
	registry  *themes.Registry
	runs      *runstore.Store
	stats     stats.Collector
	logger    *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		rules:  notnilrules.New(),
		limits: explore.DefaultConfig(),
		scorer: criticality.DefaultScorer(),
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithEvaluator sets the engine evaluation provider. Required.
// If the evaluator implements io.Closer it is closed by Analyzer.Close.
func WithEvaluator(e engine.Evaluator) Option {
	return optionFunc(func(o *options) {
		o.evaluator = e
	})
}

// WithPredictor sets the human-move predictor. Predictions are requested
// only when a rating is set in the limits or the request.
func WithPredictor(p engine.Predictor) Option {
	return optionFunc(func(o *options) {
		o.predictor = p
	})
}

// WithRules sets the chess rules provider.
// If not set, github.com/notnil/chess is used.
func WithRules(p rules.Provider) Option {
	return optionFunc(func(o *options) {
		o.rules = p
	})
}

// WithCache sets the artifact cache shared by all runs.
// If not set, an in-process LRU cache of DefaultCacheSize entries, each
// expiring after DefaultCacheTTL, is used.
func WithCache(c artifact.Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
	})
}

// WithLimits sets the default exploration limits.
func WithLimits(c explore.Config) Option {
	return optionFunc(func(o *options) {
		o.limits = c
	})
}

// WithScorer sets the criticality scorer.
func WithScorer(s *criticality.Scorer) Option {
	return optionFunc(func(o *options) {
		o.scorer = s
	})
}

// WithRegistry sets the theme detector registry.
// If not set, all built-in detectors are registered.
func WithRegistry(r *themes.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = r
	})
}

// WithRunStore records every analysis in s. The analyzer closes s.
func WithRunStore(s *runstore.Store) Option {
	return optionFunc(func(o *options) {
		o.runs = s
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
