// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/lookahead/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics.
// Metrics are created and registered lazily on first use.
type Collector struct {
	registry prometheus.Registerer
	buckets  map[string][]float64

	mu         sync.RWMutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// DurationBuckets are the histogram buckets used for the run and
// evaluation duration metrics, from 5ms to about 80s.
var DurationBuckets = prometheus.ExponentialBuckets(0.005, 2, 15)

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry: registry,
		buckets: map[string][]float64{
			stats.MetricRunSeconds:  DurationBuckets,
			stats.MetricEvalSeconds: DurationBuckets,
		},
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// SetBuckets overrides the buckets of a histogram that has not been
// observed yet.
func (c *Collector) SetBuckets(name string, buckets []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[name] = buckets
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	counter := lookup(c, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
	})
	counter.Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	gauge := lookup(c, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
	})
	gauge.Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	histogram := lookup(c, c.histograms, name, func() prometheus.Histogram {
		buckets := c.buckets[name]
		if buckets == nil {
			buckets = prometheus.DefBuckets
		}
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    name,
			Buckets: buckets,
		})
	})
	histogram.Observe(value)
}

// lookup returns the metric registered under name, creating and registering
// it with create on first use. create runs with c.mu held for writing.
func lookup[M prometheus.Collector](c *Collector, metrics map[string]M, name string, create func() M) M {
	c.mu.RLock()
	m, ok := metrics[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if m, ok = metrics[name]; ok {
		return m
	}

	m = create()
	if err := c.registry.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(M); ok {
				m = existing
			}
		}
		// On other registration errors the metric still works unregistered.
	}
	metrics[name] = m
	return m
}
