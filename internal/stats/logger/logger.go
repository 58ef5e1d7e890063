// Package logger provides a zap-based stats collector that logs metrics.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/discochess/lookahead/internal/stats"
)

// Collector implements stats.Collector by logging metrics via zap.
type Collector struct {
	logger *zap.Logger
	level  zapcore.Level
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a collector that logs each metric update at debug level
// under the "stats" logger name.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Collector {
	return NewAtLevel(logger, zapcore.DebugLevel)
}

// NewAtLevel is like New but logs at the given level. The CLI uses info
// level so run metrics show up with --verbose.
func NewAtLevel(logger *zap.Logger, level zapcore.Level) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger.Named("stats"), level: level}
}

// IncCounter logs a counter increment.
func (c *Collector) IncCounter(name string, delta int64) {
	c.logger.Log(c.level, "counter",
		zap.String("metric", name),
		zap.Int64("delta", delta),
	)
}

// SetGauge logs a gauge value.
func (c *Collector) SetGauge(name string, value int64) {
	c.logger.Log(c.level, "gauge",
		zap.String("metric", name),
		zap.Int64("value", value),
	)
}

// ObserveHistogram logs a histogram observation.
func (c *Collector) ObserveHistogram(name string, value float64) {
	c.logger.Log(c.level, "histogram",
		zap.String("metric", name),
		zap.Float64("value", value),
	)
}
