// Package lookaheadfx provides an fx module for a configured lookahead
// analyzer.
package lookaheadfx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/config"
	"github.com/discochess/lookahead/internal/stats"
	"github.com/discochess/lookahead/internal/stats/logger"
	statsprom "github.com/discochess/lookahead/internal/stats/prometheus"
)

// Module provides a *lookahead.Analyzer built from config.Config.
// Requires a config.Config and a *zap.Logger to be provided. When a
// prometheus.Registerer is provided, metrics are registered with it;
// otherwise they are logged at debug level.
var Module = fx.Module("lookahead",
	fx.Provide(
		newStatsCollector,
		newAnalyzer,
	),
)

type collectorParams struct {
	fx.In

	Logger     *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
}

func newStatsCollector(p collectorParams) stats.Collector {
	if p.Registerer != nil {
		return statsprom.New(p.Registerer)
	}
	return logger.New(p.Logger.Named("lookahead"))
}

// Params holds dependencies for creating the analyzer.
type Params struct {
	fx.In

	Config    config.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided analyzer.
type Result struct {
	fx.Out

	Analyzer *lookahead.Analyzer
}

func newAnalyzer(p Params) (Result, error) {
	a, err := lookahead.NewFromConfig(context.Background(), p.Config,
		lookahead.WithStats(p.Collector),
		lookahead.WithLogger(p.Logger.Named("lookahead")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return a.Close()
		},
	})

	return Result{Analyzer: a}, nil
}
