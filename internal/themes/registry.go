package themes

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/stats"
)

// ErrDetectorPanic wraps a panic recovered from a detector.
var ErrDetectorPanic = errors.New("themes: detector panicked")

// Info describes a detector.
type Info struct {
	ID       string
	Types    []Type
	Category Category
	// MinTier is the lowest analysis tier the detector runs at.
	MinTier criticality.Tier
	// Priority orders results only; higher comes first.
	Priority int
}

// Detector scans one position for a family of themes.
type Detector interface {
	Info() Info
	Detect(snap *board.Snapshot, ply int, tier criticality.Tier) ([]Instance, error)
}

// DetectorFailure records a detector that returned an error or panicked.
type DetectorFailure struct {
	DetectorID string
	Err        error
}

func (f DetectorFailure) Error() string {
	return fmt.Sprintf("detector %s: %v", f.DetectorID, f.Err)
}

func (f DetectorFailure) Unwrap() error { return f.Err }

// Result is the aggregated output of a registry run.
type Result struct {
	Themes []Instance
	// Deltas marks every theme as emerged. It is meaningful only when the
	// caller has no history for the position.
	Deltas   []Delta
	Failures []DetectorFailure
}

// Option configures a Registry.
type Option interface {
	apply(*options)
}

type options struct {
	logger *zap.Logger
	stats  stats.Collector
}

func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
		stats:  stats.NewNoop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// Registry holds an ordered set of detectors. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	detectors []Detector
	minTier   map[Type]criticality.Tier
	logger    *zap.Logger
	stats     stats.Collector
}

// NewRegistry creates a registry over detectors. Detectors run in priority
// order, ties keeping the given order.
func NewRegistry(detectors []Detector, opts ...Option) *Registry {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	ordered := slices.Clone(detectors)
	slices.SortStableFunc(ordered, func(a, b Detector) int {
		return b.Info().Priority - a.Info().Priority
	})

	minTier := make(map[Type]criticality.Tier)
	for _, d := range ordered {
		info := d.Info()
		for _, t := range info.Types {
			if old, ok := minTier[t]; !ok || info.MinTier < old {
				minTier[t] = info.MinTier
			}
		}
	}

	return &Registry{
		detectors: ordered,
		minTier:   minTier,
		logger:    cfg.logger.Named("themes"),
		stats:     cfg.stats,
	}
}

// Detectors returns the detectors in run order.
func (r *Registry) Detectors() []Detector {
	return slices.Clone(r.detectors)
}

// Detect runs every detector applicable at tier.
func (r *Registry) Detect(snap *board.Snapshot, ply int, tier criticality.Tier) Result {
	return r.run(snap, ply, tier, func(info Info) bool {
		return info.MinTier <= tier
	})
}

// DetectPromoted runs only the detectors that become applicable when a
// position is promoted from one tier to a higher one.
func (r *Registry) DetectPromoted(snap *board.Snapshot, ply int, from, to criticality.Tier) Result {
	return r.run(snap, ply, to, func(info Info) bool {
		return info.MinTier > from && info.MinTier <= to
	})
}

// AtTier keeps the instances a Detect at tier could have produced. Types no
// detector declares are kept.
func (r *Registry) AtTier(in []Instance, tier criticality.Tier) []Instance {
	out := make([]Instance, 0, len(in))
	for _, t := range in {
		if m, ok := r.minTier[t.Type]; ok && m > tier {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *Registry) run(snap *board.Snapshot, ply int, tier criticality.Tier, applies func(Info) bool) Result {
	var res Result
	for _, d := range r.detectors {
		info := d.Info()
		if !applies(info) {
			continue
		}

		found, err := r.runOne(d, snap, ply, tier)
		if err != nil {
			res.Failures = append(res.Failures, DetectorFailure{DetectorID: info.ID, Err: err})
			r.stats.IncCounter(stats.MetricDetectorFailures, 1)
			r.logger.Warn("detector failed",
				zap.String("detector", info.ID),
				zap.Int("ply", ply),
				zap.Error(err),
			)
			continue
		}
		for _, t := range found {
			t.Ply = ply
			res.Themes = append(res.Themes, t)
		}
	}

	r.stats.IncCounter(stats.MetricThemesDetected, int64(len(res.Themes)))
	res.Deltas = Emerge(res.Themes)
	return res
}

func (r *Registry) runOne(d Detector, snap *board.Snapshot, ply int, tier criticality.Tier) (found []Instance, err error) {
	defer func() {
		if p := recover(); p != nil {
			found = nil
			err = fmt.Errorf("%w: %v", ErrDetectorPanic, p)
		}
	}()
	return d.Detect(snap, ply, tier)
}
