package lookaheadfx

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/config"
)

func scriptedConfig() config.Config {
	cfg := config.Default()
	cfg.Engine.Kind = "scripted"
	cfg.Explore.MaxNodes = 3
	return cfg
}

func TestModule(t *testing.T) {
	var a *lookahead.Analyzer
	app := fxtest.New(t,
		fx.Supply(scriptedConfig(), zap.NewNop()),
		Module,
		fx.Populate(&a),
	)
	app.RequireStart()

	res, err := a.Analyze(context.Background(), lookahead.Request{
		FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.NodesExplored != 3 {
		t.Errorf("NodesExplored = %d, want 3", res.NodesExplored)
	}

	app.RequireStop()
	if err := a.Close(); err != lookahead.ErrClosed {
		t.Errorf("Close() after stop = %v, want ErrClosed", err)
	}
}

func TestModule_PrometheusRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	var a *lookahead.Analyzer
	app := fxtest.New(t,
		fx.Supply(scriptedConfig(), zap.NewNop()),
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module,
		fx.Populate(&a),
	)
	app.RequireStart()
	defer app.RequireStop()

	if _, err := a.Analyze(context.Background(), lookahead.Request{
		FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("no metrics registered")
	}
}

func TestModule_InvalidConfig(t *testing.T) {
	cfg := scriptedConfig()
	cfg.Engine.Kind = "telepathy"

	app := fx.New(
		fx.Supply(cfg, zap.NewNop()),
		Module,
		fx.Invoke(func(*lookahead.Analyzer) {}),
		fx.NopLogger,
	)
	if app.Err() == nil {
		t.Error("expected an error for an unknown engine kind")
	}
}
