package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/discochess/lookahead/internal/stats"
)

func TestCollector_LogsMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core))

	c.IncCounter(stats.MetricNodesExplored, 3)
	c.SetGauge(stats.MetricCacheSize, 12)
	c.ObserveHistogram(stats.MetricRunSeconds, 0.25)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d log entries, want 3", len(entries))
	}

	want := []string{"counter", "gauge", "histogram"}
	for i, e := range entries {
		if e.Message != want[i] {
			t.Errorf("entry %d message = %q, want %q", i, e.Message, want[i])
		}
		if e.LoggerName != "stats" {
			t.Errorf("entry %d logger = %q, want stats", i, e.LoggerName)
		}
	}
	if got := entries[0].ContextMap()["metric"]; got != stats.MetricNodesExplored {
		t.Errorf("metric field = %v, want %s", got, stats.MetricNodesExplored)
	}
}

func TestCollector_Level(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	New(zap.New(core)).IncCounter("dropped", 1)
	if logs.Len() != 0 {
		t.Errorf("debug collector should be filtered at info, got %d entries", logs.Len())
	}

	NewAtLevel(zap.New(core), zapcore.InfoLevel).IncCounter("kept", 1)
	if logs.Len() != 1 {
		t.Errorf("info collector should log, got %d entries", logs.Len())
	}
}

func TestNew_NilLogger(t *testing.T) {
	c := New(nil)
	c.IncCounter("x", 1)
}
