// Package lookahead explores the likely continuations of a chess position
// under a bounded budget and turns what it finds into comment intents for
// a narration layer.
//
// Example usage:
//
//	ev, err := uci.NewFromPath("stockfish", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	a, err := lookahead.New(lookahead.WithEvaluator(ev))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	res, err := a.Analyze(ctx, lookahead.Request{
//	    FEN:            "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
//	    PlayedMove:     "f3",
//	    Classification: intent.Mistake,
//	})
//	for _, in := range res.Intents {
//	    fmt.Println(in.Type, in.Content.Move, in.Priority)
//	}
package lookahead

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/artifact/lru"
	"github.com/discochess/lookahead/internal/artifact/memory"
	"github.com/discochess/lookahead/internal/artifact/snapshot"
	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/explore"
	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/intent"
	"github.com/discochess/lookahead/internal/rules"
	"github.com/discochess/lookahead/internal/runstore"
	"github.com/discochess/lookahead/internal/themes"
	"github.com/discochess/lookahead/internal/themes/detectors"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNoEvaluator indicates no evaluation provider was configured.
	ErrNoEvaluator = errors.New("lookahead: no evaluator provided")

	// ErrClosed indicates the analyzer has been closed.
	ErrClosed = errors.New("lookahead: analyzer closed")

	// ErrInvalidRequest indicates a request that cannot be analyzed.
	ErrInvalidRequest = errors.New("lookahead: invalid request")

	// ErrNoPredictor indicates an operation that needs a human-move
	// predictor was called without one.
	ErrNoPredictor = errors.New("lookahead: no predictor provided")

	// ErrNoSnapshot indicates the cache cannot enumerate its entries.
	ErrNoSnapshot = errors.New("lookahead: cache does not support snapshots")
)

// SnapshotBase is the object name snapshots are saved under, before the
// codec extension.
const SnapshotBase = "artifacts"

type closer struct {
	name string
	c    interface{ Close() error }
}

// Analyzer runs explorations. Every call to Analyze builds a fresh position
// graph and theme history; only the artifact cache is shared between calls.
// An Analyzer is safe for concurrent use by multiple goroutines.
type Analyzer struct {
	explorer  *explore.Explorer
	generator *intent.Generator
	registry  *themes.Registry
	rules     rules.Provider
	evaluator engine.Evaluator
	predictor engine.Predictor
	cache     artifact.Cache
	runs      *runstore.Store
	closers   []closer
	logger    *zap.Logger
	closed    atomic.Bool
}

func defaultStrategy() (*lru.Strategy, error) {
	return lru.New(DefaultCacheSize, DefaultCacheTTL)
}

// New creates an Analyzer with the given options. WithEvaluator is required.
func New(opts ...Option) (*Analyzer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.evaluator == nil {
		return nil, ErrNoEvaluator
	}

	if o.cache == nil {
		strategy, err := defaultStrategy()
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}
		o.cache = memory.New(strategy, o.stats)
	}
	if o.registry == nil {
		o.registry = detectors.Default(themes.WithLogger(o.logger), themes.WithStats(o.stats))
	}

	x, err := explore.New(o.limits, o.rules, o.evaluator,
		explore.WithPredictor(o.predictor),
		explore.WithRegistry(o.registry),
		explore.WithScorer(o.scorer),
		explore.WithCache(o.cache),
		explore.WithStats(o.stats),
		explore.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		explorer:  x,
		generator: intent.NewGenerator(intent.WithStats(o.stats), intent.WithLogger(o.logger)),
		registry:  o.registry,
		rules:     o.rules,
		evaluator: o.evaluator,
		predictor: o.predictor,
		cache:     o.cache,
		runs:      o.runs,
		logger:    o.logger.Named("lookahead"),
	}
	if c, ok := o.evaluator.(io.Closer); ok {
		a.closers = append(a.closers, closer{"evaluator", c})
	}
	if c, ok := o.cache.(io.Closer); ok {
		a.closers = append(a.closers, closer{"cache", c})
	}
	if o.runs != nil {
		a.closers = append(a.closers, closer{"run store", o.runs})
	}

	a.logger.Debug("analyzer initialized",
		zap.String("provider", o.evaluator.Version()),
		zap.Int("maxNodes", o.limits.MaxNodes),
		zap.Duration("budget", o.limits.Budget),
		zap.Bool("recording", o.runs != nil),
	)
	return a, nil
}

// Analyze explores req.FEN and returns the comment intents, node reports and
// run statistics. Only an invalid request is an error: provider failures
// degrade the result and are listed in Result.Warnings.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	class, err := intent.ParseClassification(string(req.Classification))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	limits, err := req.limits(a.explorer.Config())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var (
		nodes   []NodeReport
		intents []intent.Intent
	)
	observer := func(ev explore.NodeEvent) {
		nc := a.nodeContext(ev, class)
		if in, ok := a.generator.ForNode(nc); ok {
			intents = append(intents, *in)
		}
		nodes = append(nodes, newNodeReport(ev))
	}

	res, err := a.explorer.Explore(ctx, explore.Params{
		FEN:      req.FEN,
		Played:   req.PlayedMove,
		Observer: observer,
		Limits:   limits,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	out := &Result{
		RootFEN:          req.FEN,
		RootKey:          res.Root.Key,
		Classification:   class,
		RootThemes:       res.RootThemes,
		RootSummary:      themes.Summarize(res.RootThemes, nil),
		Nodes:            nodes,
		Variations:       res.Variations,
		NodesExplored:    res.NodesExplored,
		NodesSkipped:     res.NodesSkipped,
		CacheHits:        res.CacheHits,
		CandidatesPruned: res.CandidatesPruned,
		MaxDepthReached:  res.MaxDepthReached,
		StoppingReason:   res.StoppingReason,
		State:            res.State,
		Elapsed:          res.Elapsed,
		ProviderVersion:  a.evaluator.Version(),
		Warnings:         res.Warnings,
		Graph:            res.Graph,
	}
	if lines, ok := res.Root.Evaluation(); ok && len(lines) > 0 {
		s := lines[0].Score
		out.RootEval = &s
	}

	if req.PlayedMove != "" {
		pm := a.playedMove(res, req.PlayedMove, class)
		out.Played = &pm.Move
		intents = a.generator.EnsurePlayed(intents, pm)
	}
	intent.Sort(intents)
	out.Intents = intents
	out.Criticality, out.Tiers = describeNodes(nodes)

	if a.runs != nil {
		if err := a.record(ctx, out); err != nil {
			a.logger.Warn("recording run failed", zap.String("fen", req.FEN), zap.Error(err))
			out.Warnings = append(out.Warnings, fmt.Sprintf("recording run: %v", err))
		}
	}
	return out, nil
}

// Themes runs every detector on a single position.
func (a *Analyzer) Themes(fenStr string) ([]themes.Instance, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	snap, err := board.FromFEN(fenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	res := a.registry.Detect(snap, snap.Ply, criticality.Full)
	for _, f := range res.Failures {
		a.logger.Warn("detector failed", zap.String("detector", f.DetectorID), zap.Error(f.Err))
	}
	return res.Themes, nil
}

// EstimateRating estimates a player's rating from moves they played. Moves
// may be given in SAN or UCI.
func (a *Analyzer) EstimateRating(ctx context.Context, moves []engine.PlayedMove) (engine.RatingEstimate, error) {
	if a.closed.Load() {
		return engine.RatingEstimate{}, ErrClosed
	}
	if a.predictor == nil {
		return engine.RatingEstimate{}, ErrNoPredictor
	}

	played := make([]engine.PlayedMove, len(moves))
	for i, m := range moves {
		applied, err := a.rules.ApplyMove(m.FEN, m.Move)
		if err != nil {
			return engine.RatingEstimate{}, fmt.Errorf("%w: move %d: %w", ErrInvalidRequest, i+1, err)
		}
		played[i] = engine.PlayedMove{FEN: m.FEN, Move: applied.Move.UCI}
	}

	est, err := engine.EstimateRating(ctx, a.predictor, played)
	if errors.Is(err, engine.ErrNoMoves) {
		return est, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return est, err
}

// Cache returns the artifact cache shared by all runs.
func (a *Analyzer) Cache() artifact.Cache {
	return a.cache
}

// Runs returns the run store, or nil when runs are not recorded.
func (a *Analyzer) Runs() *runstore.Store {
	return a.runs
}

// SaveSnapshot writes the cache contents to dst and returns the number of
// entries saved.
func (a *Analyzer) SaveSnapshot(ctx context.Context, dst blob.Store, c codec.Codec) (int, error) {
	src, ok := a.cache.(snapshot.Source)
	if !ok {
		return 0, ErrNoSnapshot
	}
	return snapshot.Save(ctx, dst, snapshot.Name(c, SnapshotBase), c, src, a.evaluator.Version())
}

// RestoreSnapshot loads a snapshot saved for the current provider version
// into the cache and returns the number of entries restored.
func (a *Analyzer) RestoreSnapshot(ctx context.Context, src blob.Store, c codec.Codec) (int, error) {
	return snapshot.Restore(ctx, src, snapshot.Name(c, SnapshotBase), c, a.cache, a.evaluator.Version())
}

// Close releases the evaluator, cache, run store and any other resources
// the analyzer owns. After Close, the analyzer should not be used.
func (a *Analyzer) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// nodeContext gathers what the intent generator needs about one node.
func (a *Analyzer) nodeContext(ev explore.NodeEvent, class intent.Classification) intent.NodeContext {
	nc := intent.NodeContext{
		PositionKey:     ev.Node.Key,
		Ply:             ev.Node.Ply,
		Move:            ev.Move,
		Side:            ev.Mover,
		Themes:          ev.Themes,
		Deltas:          ev.Deltas,
		Criticality:     ev.Criticality,
		Priority:        ev.Priority,
		Played:          ev.Played,
		BestAlternative: a.bestAlternative(ev.ParentFEN, ev.ParentLines, ev.Move),
		BestProbability: bestProbability(ev.ParentLines, ev.ParentPredictions),
	}
	if ev.Played {
		nc.Classification = class
	}
	return nc
}

// playedMove describes the played move for the fallback guarantee, whether
// or not the explorer managed to expand it.
func (a *Analyzer) playedMove(res *explore.Result, played string, class intent.Classification) intent.PlayedMove {
	root := res.Root
	rootLines, _ := root.Evaluation()
	pm := intent.PlayedMove{
		Ply:            root.Ply + 1,
		Move:           rules.Move{UCI: played},
		Side:           sideOf(root.FEN),
		Classification: class,
	}
	if n := res.Played; n != nil {
		pm.PositionKey = n.Key
		pm.Ply = n.Ply
		pm.Move = n.Move
	} else if applied, err := a.rules.ApplyMove(root.FEN, played); err == nil {
		pm.Move = applied.Move
		if key, err := fen.Normalize(applied.FEN); err == nil {
			pm.PositionKey = key
		}
	}
	pm.BestAlternative = a.bestAlternative(root.FEN, rootLines, pm.Move)
	return pm
}

// bestAlternative is the engine's preferred move at the parent in SAN, or
// empty when it is the move played.
func (a *Analyzer) bestAlternative(parentFEN string, parentLines []engine.Line, played rules.Move) string {
	if len(parentLines) == 0 || parentLines[0].Move == "" || parentLines[0].Move == played.UCI {
		return ""
	}
	best := parentLines[0].Move
	applied, err := a.rules.ApplyMove(parentFEN, best)
	if err != nil {
		return best
	}
	if applied.Move.UCI == played.UCI {
		return ""
	}
	return applied.Move.String()
}

func (a *Analyzer) record(ctx context.Context, res *Result) error {
	run := &runstore.Run{
		RootFEN:         res.RootFEN,
		RootKey:         res.RootKey,
		Classification:  string(res.Classification),
		StoppingReason:  string(res.StoppingReason),
		NodesExplored:   res.NodesExplored,
		NodesSkipped:    res.NodesSkipped,
		CacheHits:       res.CacheHits,
		MaxDepth:        res.MaxDepthReached,
		Elapsed:         res.Elapsed,
		ProviderVersion: res.ProviderVersion,
		Warnings:        res.Warnings,
		CreatedAt:       time.Now().UTC(),
		Intents:         res.Intents,
	}
	if res.Played != nil {
		run.Played = res.Played.String()
	}
	if err := a.runs.Save(ctx, run); err != nil {
		return err
	}
	res.RunID = run.ID
	return nil
}

// bestProbability is the predicted chance a human finds the parent's best
// move. It is nil when the parent has no predictions.
func bestProbability(parentLines []engine.Line, preds []engine.Prediction) *float64 {
	if len(parentLines) == 0 || len(preds) == 0 {
		return nil
	}
	p := 0.0
	for _, pr := range preds {
		if pr.Move == parentLines[0].Move {
			p = pr.Probability
			break
		}
	}
	return &p
}

func sideOf(fenStr string) board.Color {
	if side, err := fen.SideToMove(fenStr); err == nil && side == "b" {
		return board.Black
	}
	return board.White
}
