package lookahead

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discochess/lookahead/internal/blob/memblob"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
	"github.com/discochess/lookahead/internal/config"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/engine/scripted"
	"github.com/discochess/lookahead/internal/explore"
	"github.com/discochess/lookahead/internal/intent"
	"github.com/discochess/lookahead/internal/rules/notnilrules"
	"github.com/discochess/lookahead/internal/runstore"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func testLimits() explore.Config {
	cfg := explore.DefaultConfig()
	cfg.MaxNodes = 8
	cfg.MaxDepth = 3
	cfg.Budget = time.Minute
	return cfg
}

// newEvaluator scripts the start position and scores everything else by
// material.
func newEvaluator() *scripted.Evaluator {
	ev := scripted.NewEvaluator()
	ev.Set(startFEN,
		engine.Line{Move: "e2e4", Score: engine.CPScore(30)},
		engine.Line{Move: "d2d4", Score: engine.CPScore(25)},
		engine.Line{Move: "f2f3", Score: engine.CPScore(-40)},
	)
	ev.SetGenerator(scripted.MaterialGenerator(notnilrules.New()))
	return ev
}

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(append([]Option{WithEvaluator(newEvaluator()), WithLimits(testLimits())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func findIntent(intents []intent.Intent, uci string) (intent.Intent, bool) {
	for _, in := range intents {
		if in.Content.UCI == uci {
			return in, true
		}
	}
	return intent.Intent{}, false
}

func TestNew_RequiresEvaluator(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoEvaluator)

	bad := testLimits()
	bad.MaxNodes = 0
	_, err = New(WithEvaluator(newEvaluator()), WithLimits(bad))
	assert.ErrorIs(t, err, explore.ErrInvalidBudget)
}

func TestAnalyze_PlayedMistake(t *testing.T) {
	a := newAnalyzer(t)

	res, err := a.Analyze(context.Background(), Request{
		FEN:            startFEN,
		PlayedMove:     "f3",
		Classification: intent.Mistake,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Played)
	assert.Equal(t, "f2f3", res.Played.UCI)
	assert.Equal(t, 8, res.NodesExplored)
	assert.Equal(t, explore.NodeLimit, res.StoppingReason)
	require.NotNil(t, res.RootEval)
	assert.Equal(t, 30, res.RootEval.Centipawns())

	in, ok := findIntent(res.Intents, "f2f3")
	require.True(t, ok, "played mistake must yield an intent")
	assert.True(t, in.Mandatory)
	assert.Equal(t, intent.TypeMistake, in.Type)
	assert.Equal(t, "e4", in.Content.BestAlternative)
	assert.Equal(t, 1, in.Ply)
	assert.False(t, in.Breakdown.Fallback)
	assert.GreaterOrEqual(t, in.Priority, 0.7)

	for i := 1; i < len(res.Intents); i++ {
		assert.GreaterOrEqual(t, res.Intents[i-1].Priority, res.Intents[i].Priority)
	}

	require.Len(t, res.Nodes, 8)
	assert.True(t, res.Nodes[0].Played)
	assert.Equal(t, 8, res.Criticality.N)
	total := 0
	for _, n := range res.Tiers {
		total += n
	}
	assert.Equal(t, 8, total)
}

func TestAnalyze_FallbackForIllegalPlayedMove(t *testing.T) {
	a := newAnalyzer(t)

	res, err := a.Analyze(context.Background(), Request{
		FEN:            startFEN,
		PlayedMove:     "e2e5",
		Classification: intent.Blunder,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)

	in, ok := findIntent(res.Intents, "e2e5")
	require.True(t, ok)
	assert.True(t, in.Mandatory)
	assert.True(t, in.Breakdown.Fallback)
	assert.Equal(t, intent.TypeBlunder, in.Type)
	assert.Equal(t, "e4", in.Content.BestAlternative)
	assert.Equal(t, 0.9, in.Priority)
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	a := newAnalyzer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"bad fen", Request{FEN: "not a fen"}},
		{"bad classification", Request{FEN: startFEN, Classification: "brilliant"}},
		{"bad limits", Request{FEN: startFEN, MaxNodes: -1}},
		{"bad rating", Request{FEN: startFEN, Rating: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestAnalyze_RequestLimits(t *testing.T) {
	a := newAnalyzer(t)

	res, err := a.Analyze(context.Background(), Request{FEN: startFEN, MaxNodes: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NodesExplored)
	assert.Equal(t, 8, a.explorer.Config().MaxNodes, "request limits must not leak into the analyzer")
}

func TestAnalyze_RecordsRun(t *testing.T) {
	runs, err := runstore.Open(":memory:")
	require.NoError(t, err)
	a := newAnalyzer(t, WithRunStore(runs))
	ctx := context.Background()

	res, err := a.Analyze(ctx, Request{FEN: startFEN, PlayedMove: "f3", Classification: intent.Mistake})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	got, err := a.Runs().Get(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "f3", got.Played)
	assert.Equal(t, "mistake", got.Classification)
	assert.Equal(t, res.NodesExplored, got.NodesExplored)
	assert.Len(t, got.Intents, len(res.Intents))
}

func TestAnalyzer_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()
	c := zstdcodec.New()

	first := newAnalyzer(t)
	_, err := first.Analyze(ctx, Request{FEN: startFEN})
	require.NoError(t, err)
	saved, err := first.SaveSnapshot(ctx, store, c)
	require.NoError(t, err)
	require.Positive(t, saved)

	second := newAnalyzer(t)
	restored, err := second.RestoreSnapshot(ctx, store, c)
	require.NoError(t, err)
	assert.Equal(t, saved, restored)

	res, err := second.Analyze(ctx, Request{FEN: startFEN})
	require.NoError(t, err)
	assert.Positive(t, res.CacheHits)
}

func TestDefaultStrategy_Expires(t *testing.T) {
	s, err := defaultStrategy()
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheTTL, s.TTL())
	assert.Positive(t, s.TTL())
}

func TestAnalyzer_EstimateRating(t *testing.T) {
	ctx := context.Background()
	bare := newAnalyzer(t)
	_, err := bare.EstimateRating(ctx, []engine.PlayedMove{{FEN: startFEN, Move: "e4"}})
	assert.ErrorIs(t, err, ErrNoPredictor)

	preds := scripted.NewPredictor()
	preds.Set(startFEN, engine.Prediction{Move: "e2e4", Probability: 0.7})
	a := newAnalyzer(t, WithPredictor(preds))

	est, err := a.EstimateRating(ctx, []engine.PlayedMove{{FEN: startFEN, Move: "e4"}})
	require.NoError(t, err)
	assert.Equal(t, engine.MinRating, est.Rating)
	assert.Equal(t, 1, est.Moves)
	assert.Equal(t, engine.MinRating+290, est.High)
	assert.Equal(t, int64(len(engine.RatingBands())), preds.Calls())

	_, err = a.EstimateRating(ctx, []engine.PlayedMove{{FEN: startFEN, Move: "e5"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = a.EstimateRating(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAnalyzer_Close(t *testing.T) {
	a, err := New(WithEvaluator(newEvaluator()))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Close(), ErrClosed)

	_, err = a.Analyze(context.Background(), Request{FEN: startFEN})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAnalyzer_Themes(t *testing.T) {
	a := newAnalyzer(t)

	// White knight on c7 forks the king on e8 and the rook on a8.
	found, err := a.Themes("r3k3/2N5/8/8/8/8/8/4K3 b - - 0 1")
	require.NoError(t, err)
	assert.NotEmpty(t, found)

	_, err = a.Themes("garbage")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNewFromConfig_Scripted(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Kind = "scripted"
	cfg.Explore.MaxNodes = 4
	cfg.Store.Path = ":memory:"
	cfg.Cache.Snapshot = t.TempDir()

	a, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Analyze(context.Background(), Request{FEN: startFEN, PlayedMove: "e4"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.NodesExplored)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "scripted/1", res.ProviderVersion)
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Kind = "telepathy"
	_, err := NewFromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{40, 10, 30, 20})
	assert.Equal(t, 4, d.N)
	assert.InDelta(t, 25.0, d.Mean, 1e-9)
	assert.Equal(t, 10.0, d.Min)
	assert.Equal(t, 40.0, d.Max)
	assert.Equal(t, 20.0, d.Median)
	assert.Greater(t, d.StdDev, 0.0)

	one := Describe([]float64{7})
	assert.Equal(t, 7.0, one.Median)
	assert.Zero(t, one.StdDev)

	assert.Equal(t, Distribution{}, Describe(nil))
}
