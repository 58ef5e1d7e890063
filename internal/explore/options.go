package explore

import (
	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/stats"
	"github.com/discochess/lookahead/internal/themes"
	"github.com/discochess/lookahead/internal/themes/detectors"
)

// Option configures an Explorer.
type Option interface {
	apply(*options)
}

type options struct {
	predictor engine.Predictor
	registry  *themes.Registry
	scorer    *criticality.Scorer
	cache     artifact.Cache
	stats     stats.Collector
	logger    *zap.Logger
}

func defaultOptions() options {
	return options{
		scorer: criticality.DefaultScorer(),
		cache:  artifact.Nop{},
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithPredictor enables human-move prediction. It is only consulted when
// Config.PredictionRating is set.
func WithPredictor(p engine.Predictor) Option {
	return optionFunc(func(o *options) {
		o.predictor = p
	})
}

// WithRegistry sets the theme detector registry.
// If not set, the default detectors are used.
func WithRegistry(r *themes.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = r
	})
}

// WithScorer sets the criticality scorer.
func WithScorer(s *criticality.Scorer) Option {
	return optionFunc(func(o *options) {
		o.scorer = s
	})
}

// WithCache sets the artifact cache shared across runs.
// If not set, nothing is cached.
func WithCache(c artifact.Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
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

func (o *options) defaults() {
	if o.registry == nil {
		o.registry = detectors.Default(themes.WithLogger(o.logger), themes.WithStats(o.stats))
	}
}
