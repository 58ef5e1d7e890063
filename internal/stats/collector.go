// Package stats provides a unified interface for collecting metrics.
package stats

import "time"

// Metric names used throughout the library.
const (
	// Explorer metrics.
	MetricRuns             = "lookahead_runs_total"
	MetricNodesExplored    = "lookahead_nodes_explored_total"
	MetricNodesSkipped     = "lookahead_nodes_skipped_total"
	MetricCandidatesPruned = "lookahead_candidates_pruned_total"
	MetricProviderFailures = "lookahead_provider_failures_total"
	MetricRunSeconds       = "lookahead_run_duration_seconds"
	MetricEvalSeconds      = "lookahead_eval_duration_seconds"

	// Detector metrics.
	MetricDetectorFailures = "lookahead_detector_failures_total"
	MetricThemesDetected   = "lookahead_themes_detected_total"

	// Intent metrics.
	MetricIntents         = "lookahead_intents_total"
	MetricFallbackIntents = "lookahead_fallback_intents_total"

	// Cache metrics.
	MetricCacheHits      = "lookahead_cache_hits_total"
	MetricCacheMisses    = "lookahead_cache_misses_total"
	MetricCacheSize      = "lookahead_cache_size"
	MetricCacheEvictions = "lookahead_cache_evictions_total"
	MetricCacheErrors    = "lookahead_cache_errors_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

// ObserveSince records the seconds elapsed since start in a histogram.
func ObserveSince(c Collector, name string, start time.Time) {
	c.ObserveHistogram(name, time.Since(start).Seconds())
}
