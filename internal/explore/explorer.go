// Package explore runs the bounded best-first search over candidate
// continuations of a position.
//
// Each run owns a fresh position graph, lifecycle tracker and tier book;
// only the artifact cache is shared between runs. The control loop runs on
// the calling goroutine and is the only writer of the graph. Provider calls
// for one node fan out concurrently and join before the loop continues, so
// observers are notified in pop order.
//
// The time budget is checked between nodes. The root and the played move
// are analyzed regardless of it, so a run may exceed its budget by the
// root's provider calls plus the played move's, and otherwise by the calls
// of the one node in flight.
package explore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/graph"
	"github.com/discochess/lookahead/internal/lifecycle"
	"github.com/discochess/lookahead/internal/rules"
	"github.com/discochess/lookahead/internal/stats"
	"github.com/discochess/lookahead/internal/themes"
)

// ErrNoProvider indicates a missing rules provider or evaluator.
var ErrNoProvider = errors.New("explore: provider required")

var tracer = otel.Tracer("github.com/discochess/lookahead/internal/explore")

const (
	// PlayedPriority is the frontier priority of the played move.
	PlayedPriority = 1000.0

	critWeight     = 0.6
	strengthWeight = 0.4
	// strengthScale is the centipawn loss at which a line's strength
	// reaches zero.
	strengthScale = 300.0
	// predictionFloor is the lowest probability at which a predicted move
	// becomes a candidate.
	predictionFloor = 0.2
)

// Seed is a caller-supplied root candidate.
type Seed struct {
	Move     string
	Priority float64
}

// Params describes one run.
type Params struct {
	// FEN is the root position.
	FEN string
	// Played is the move actually played from the root, in SAN or UCI.
	// It is always explored when set and legal.
	Played string
	// Seeds are extra root candidates.
	Seeds []Seed
	// Observer is notified of each processed node, in pop order.
	Observer Observer
	// Limits replaces the explorer's limits for this run when set.
	Limits *Config
}

// NodeEvent describes one processed node.
type NodeEvent struct {
	Sequence      int
	Node          *graph.Node
	Parent        string
	ParentFEN     string
	Move          rules.Move
	Mover         board.Color
	Played        bool
	Transposition bool
	CacheHit      bool
	Degraded      bool
	Priority      float64
	Lines         []engine.Line
	ParentLines   []engine.Line
	Predictions   []engine.Prediction
	// ParentPredictions are the human-move predictions at the parent.
	ParentPredictions []engine.Prediction
	Themes            []themes.Instance
	Deltas            []themes.Delta
	Criticality       criticality.Result
	Tier              criticality.Tier
}

// Observer receives node events. It runs on the control loop and must not
// block for long.
type Observer func(NodeEvent)

// Result is the outcome of one run.
type Result struct {
	Graph            *graph.Graph
	Root             *graph.Node
	RootThemes       []themes.Instance
	Played           *graph.Node
	Variations       [][]rules.Move
	Events           []NodeEvent
	NodesExplored    int
	NodesSkipped     int
	CacheHits        int
	CandidatesPruned int
	MaxDepthReached  int
	StoppingReason   StoppingReason
	State            State
	Elapsed          time.Duration
	Warnings         []string
}

// Explorer runs explorations. An Explorer is safe for concurrent use; each
// call to Explore is independent apart from the shared cache.
type Explorer struct {
	cfg       Config
	rules     rules.Provider
	evaluator engine.Evaluator
	predictor engine.Predictor
	registry  *themes.Registry
	scorer    *criticality.Scorer
	loader    *artifact.Loader
	stats     stats.Collector
	logger    *zap.Logger
}

// New creates an explorer. It fails fast on an invalid config.
func New(cfg Config, p rules.Provider, ev engine.Evaluator, opts ...Option) (*Explorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil || ev == nil {
		return nil, ErrNoProvider
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	o.defaults()

	return &Explorer{
		cfg:       cfg,
		rules:     p,
		evaluator: ev,
		predictor: o.predictor,
		registry:  o.registry,
		scorer:    o.scorer,
		loader:    artifact.NewLoader(o.cache),
		stats:     o.stats,
		logger:    o.logger.Named("explore"),
	}, nil
}

// Config returns the explorer's limits.
func (e *Explorer) Config() Config {
	return e.cfg
}

// Explore runs one bounded exploration from p.FEN. Only an invalid root
// position is an error; provider failures become warnings, and context
// cancellation ends the run with a time-limit result.
func (e *Explorer) Explore(ctx context.Context, p Params) (*Result, error) {
	ctx, span := tracer.Start(ctx, "explore.Explore")
	defer span.End()

	cfg := e.cfg
	if p.Limits != nil {
		if err := p.Limits.Validate(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		cfg = *p.Limits
	}

	g := graph.New(e.rules)
	root, err := g.AddRoot(p.FEN)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("explore: %w", err)
	}
	span.SetAttributes(attribute.String("lookahead.root", root.Key))

	r := &run{
		Explorer:  e,
		cfg:       cfg,
		params:    p,
		graph:     g,
		tracker:   lifecycle.NewTracker(),
		tiers:     criticality.NewTierBook(),
		queued:    make(map[string]bool),
		processed: make(map[string]bool),
		explained: make(map[string]bool),
		predicted: make(map[string][]engine.Prediction),
		detected:  make(map[string]criticality.Tier),
		promoted:  make(map[tieredKey][]themes.Instance),
		res:       &Result{Graph: g, Root: root},
		start:     time.Now(),
	}
	if r.state, err = start(Idle); err != nil {
		return nil, err
	}
	e.stats.IncCounter(stats.MetricRuns, 1)

	r.seed(ctx, root)
	reason := r.loop(ctx)
	if r.state, err = stop(r.state, reason); err != nil {
		return nil, err
	}

	r.markPrincipals()

	res := r.res
	res.StoppingReason = reason
	res.State = r.state
	res.Variations = g.Variations()
	res.Elapsed = time.Since(r.start)
	stats.ObserveSince(e.stats, stats.MetricRunSeconds, r.start)

	span.SetAttributes(
		attribute.Int("lookahead.nodes_explored", res.NodesExplored),
		attribute.Int("lookahead.nodes_skipped", res.NodesSkipped),
		attribute.String("lookahead.stopping_reason", string(reason)),
	)
	e.logger.Info("exploration finished",
		zap.String("root", root.Key),
		zap.Int("nodesExplored", res.NodesExplored),
		zap.Int("nodesSkipped", res.NodesSkipped),
		zap.Int("cacheHits", res.CacheHits),
		zap.Int("maxDepth", res.MaxDepthReached),
		zap.String("reason", string(reason)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// run is the state of one exploration.
type run struct {
	*Explorer

	// cfg shadows the explorer's limits with the ones in force for the run.
	cfg       Config
	params    Params
	graph     *graph.Graph
	tracker   *lifecycle.Tracker
	tiers     *criticality.TierBook
	frontier  frontier
	queued    map[string]bool
	processed map[string]bool
	explained map[string]bool
	predicted map[string][]engine.Prediction
	// detected is the tier whose detectors produced each node's recorded
	// themes.
	detected map[string]criticality.Tier
	promoted map[tieredKey][]themes.Instance
	res      *Result
	state     State
	start     time.Time
}

type tieredKey struct {
	key  string
	tier criticality.Tier
}

// position is a node-to-be: the child of a popped entry before it is
// committed to the graph.
type position struct {
	key       string
	fen       string
	ply       int
	terminal  bool
	checkmate bool
}

func (r *run) seed(ctx context.Context, root *graph.Node) {
	pos := position{key: root.Key, fen: root.FEN, ply: root.Ply}
	r.processed[root.Key] = true

	tier, _ := r.tiers.Assign(root.Key, criticality.Standard)
	a, hit, err := r.analyze(ctx, pos, nil, tier)
	if err != nil {
		r.warn("root evaluation failed", err, zap.String("fen", root.FEN))
	}
	if hit {
		r.countHit()
	}

	var lines []engine.Line
	if a != nil {
		lines = a.Lines
		if len(lines) > 0 {
			root.SetEvaluation(lines)
		}
		if a.Criticality != nil {
			root.SetCriticality(*a.Criticality)
		}
		found, detectedAt := a.Themes, a.Tier
		if a.Tier < tier {
			found = r.detectPromoted(root, a.Themes, a.Tier, tier)
			detectedAt = tier
		}
		r.detected[root.Key] = detectedAt
		r.res.RootThemes = themes.CloneInstances(found)
		r.tracker.Observe("", root.Key, found)
	}
	root.PromoteTier(tier)

	if r.params.Played != "" {
		applied, err := r.rules.ApplyMove(root.FEN, r.params.Played)
		if err != nil {
			r.warn("played move rejected", err, zap.String("move", r.params.Played))
		} else {
			r.enqueue(root, applied.Move.UCI, PlayedPriority, 1, nil, true)
		}
	}

	for _, s := range r.params.Seeds {
		applied, err := r.rules.ApplyMove(root.FEN, s.Move)
		if err != nil {
			r.warn("seed rejected", err, zap.String("move", s.Move))
			continue
		}
		r.enqueue(root, applied.Move.UCI, s.Priority, 1, nil, false)
	}

	var preds []engine.Prediction
	if a != nil {
		preds = a.Predictions
	}
	r.predicted[root.Key] = preds
	r.pushChildren(root, math.Inf(1), lines, preds)
}

func (r *run) loop(ctx context.Context) StoppingReason {
	for {
		if r.res.NodesExplored >= r.cfg.MaxNodes {
			return NodeLimit
		}
		// The played move is exempt from the time budget.
		if r.frontier.len() > 0 && r.frontier.peek().played {
			r.expand(ctx, r.frontier.pop())
			continue
		}
		if ctx.Err() != nil || time.Since(r.start) >= r.cfg.Budget {
			return TimeLimit
		}
		if r.frontier.len() == 0 {
			if r.res.CandidatesPruned > 0 {
				return DepthLimit
			}
			return Exhaust
		}
		r.expand(ctx, r.frontier.pop())
	}
}

func (r *run) expand(ctx context.Context, e *entry) {
	ctx, span := tracer.Start(ctx, "explore.Expand", trace.WithAttributes(
		attribute.String("lookahead.move", e.move),
		attribute.Int("lookahead.depth", e.depth),
	))
	defer span.End()

	parent, ok := r.graph.GoTo(e.parent)
	if !ok {
		return
	}

	applied, err := r.rules.ApplyMove(parent.FEN, e.move)
	if err != nil {
		span.RecordError(err)
		r.warn("candidate rejected", err, zap.String("move", e.move), zap.String("fen", parent.FEN))
		return
	}
	key, err := fen.Normalize(applied.FEN)
	if err != nil {
		r.warn("candidate rejected", err, zap.String("move", e.move))
		return
	}
	span.SetAttributes(attribute.String("lookahead.position", key))

	if existing, ok := r.graph.GoTo(key); ok {
		// Transposition: record the extra edge, never re-expand.
		if _, _, err := r.graph.Expand(e.parent, e.move, e.priority); err != nil {
			r.warn("transposition edge rejected", err, zap.String("move", e.move))
		}
		r.annotate(e)
		r.res.NodesSkipped++
		r.stats.IncCounter(stats.MetricNodesSkipped, 1)
		span.SetAttributes(attribute.Bool("lookahead.transposition", true))
		if r.processed[existing.Key] {
			return
		}
		r.process(ctx, e, parent, existing, true)
		return
	}

	pos := position{
		key:       key,
		fen:       applied.FEN,
		ply:       parent.Ply + 1,
		terminal:  applied.Checkmate || applied.Stalemate,
		checkmate: applied.Checkmate,
	}
	tier := r.initialTier(e, parent)
	a, hit, evalErr := r.analyze(ctx, pos, parent, tier)
	if evalErr != nil {
		r.stats.IncCounter(stats.MetricProviderFailures, 1)
		span.RecordError(evalErr)
		if !e.played || a == nil {
			r.warn("candidate dropped", evalErr, zap.String("move", e.move), zap.String("fen", parent.FEN))
			return
		}
		r.warn("evaluation failed for played move", evalErr, zap.String("move", e.move))
	}
	span.SetAttributes(attribute.Bool("lookahead.cache_hit", hit))

	n, created, err := r.graph.Expand(e.parent, e.move, e.priority)
	if err != nil {
		r.warn("candidate rejected", err, zap.String("move", e.move))
		return
	}
	r.annotate(e)
	if !created {
		return
	}

	r.res.NodesExplored++
	r.stats.IncCounter(stats.MetricNodesExplored, 1)
	r.res.MaxDepthReached = max(r.res.MaxDepthReached, n.Depth)
	if hit {
		r.countHit()
	}

	r.commit(ctx, e, parent, n, a, tier, hit, evalErr != nil, false)
}

// process analyzes an existing node reached by transposition that has not
// been processed yet.
func (r *run) process(ctx context.Context, e *entry, parent, n *graph.Node, transposition bool) {
	pos := position{key: n.Key, fen: n.FEN, ply: n.Ply, terminal: n.Terminal}
	tier := r.initialTier(e, parent)
	a, hit, err := r.analyze(ctx, pos, parent, tier)
	if err != nil {
		r.stats.IncCounter(stats.MetricProviderFailures, 1)
		r.warn("transposition evaluation failed", err, zap.String("fen", n.FEN))
		if a == nil {
			return
		}
	}
	if hit {
		r.countHit()
	}
	r.commit(ctx, e, parent, n, a, tier, hit, err != nil, transposition)
}

// commit writes an analysis into the node, runs any promoted detectors,
// notifies the observer and pushes the node's children.
func (r *run) commit(ctx context.Context, e *entry, parent, n *graph.Node, a *artifact.Artifact, tier criticality.Tier, hit, degraded, transposition bool) {
	r.processed[n.Key] = true

	if a.Lines != nil {
		n.SetEvaluation(a.Lines)
	}
	var crit criticality.Result
	if a.Criticality != nil {
		crit = *a.Criticality
		n.SetCriticality(crit)
	}

	target := criticality.Promote(tier, a.Tier)
	target = criticality.Promote(target, crit.Tier)
	effective, _ := r.tiers.Assign(n.Key, target)
	found := a.Themes
	if effective > a.Tier {
		found = r.detectPromoted(n, a.Themes, a.Tier, effective)
		if !degraded {
			up := a.Clone()
			up.Themes = themes.CloneInstances(found)
			up.Tier = effective
			r.loader.Cache().Set(ctx, up)
		}
	}
	n.PromoteTier(effective)
	r.detected[n.Key] = effective

	// Both sides of the diff must come from the same detector set.
	r.tracker.Record(n.Key, found)
	deltas := lifecycle.Diff(r.themesAt(parent, effective), found)
	for _, d := range deltas {
		if d.Transition == themes.Emerged {
			r.explained[d.Theme.Key()] = true
		}
	}

	parentLines, _ := parent.Evaluation()
	r.predicted[n.Key] = a.Predictions
	ev := NodeEvent{
		Sequence:          len(r.res.Events),
		Node:              n,
		Parent:            parent.Key,
		ParentFEN:         parent.FEN,
		Move:              n.Move,
		Mover:             moverOf(parent.FEN),
		Played:            e.played,
		Transposition:     transposition,
		CacheHit:          hit,
		Degraded:          degraded,
		Priority:          e.priority,
		Lines:             engine.CloneLines(a.Lines),
		ParentLines:       engine.CloneLines(parentLines),
		Predictions:       append([]engine.Prediction(nil), a.Predictions...),
		ParentPredictions: append([]engine.Prediction(nil), r.predicted[parent.Key]...),
		Themes:            themes.CloneInstances(found),
		Deltas:            deltas,
		Criticality:       crit,
		Tier:              n.Tier(),
	}
	if transposition {
		if edge, ok := r.graph.Edge(parent.Key, e.move); ok {
			ev.Move = edge.Move
		}
	}
	if e.played {
		r.res.Played = n
	}
	r.res.Events = append(r.res.Events, ev)

	r.logger.Debug("node explored",
		zap.String("position", n.Key),
		zap.String("move", ev.Move.String()),
		zap.Int("depth", n.Depth),
		zap.Float64("priority", e.priority),
		zap.Float64("criticality", crit.Score),
		zap.Bool("cacheHit", hit),
	)
	if r.params.Observer != nil {
		r.params.Observer(ev)
	}

	if transposition || n.Terminal {
		return
	}
	r.pushChildren(n, e.priority, a.Lines, a.Predictions)
}

// markPrincipals marks each node's best explored line as principal, and the
// played move at the root.
func (r *run) markPrincipals() {
	for _, n := range r.graph.AllNodes() {
		lines, _ := n.Evaluation()
		if len(lines) == 0 {
			continue
		}
		if _, ok := r.graph.Edge(n.Key, lines[0].Move); ok {
			_ = r.graph.SetPrincipal(n.Key, lines[0].Move)
		}
	}
	if p := r.res.Played; p != nil {
		_ = r.graph.SetPrincipal(r.res.Root.Key, p.Move.UCI)
	}
}

// detectPromoted adds to found the themes of the detectors that apply at to
// but not at from.
func (r *run) detectPromoted(n *graph.Node, found []themes.Instance, from, to criticality.Tier) []themes.Instance {
	out := themes.CloneInstances(found)
	snap, err := board.FromFEN(n.FEN)
	if err != nil {
		return out
	}
	extra := r.registry.DetectPromoted(snap, n.Ply, from, to)
	r.noteFailures(extra.Failures)
	return append(out, extra.Themes...)
}

// themesAt returns the recorded themes of n as the detectors of tier see
// them. Themes of detectors above tier are dropped; detectors n was not
// analyzed with run once per tier and the result is kept for the run.
func (r *run) themesAt(n *graph.Node, tier criticality.Tier) []themes.Instance {
	found, _ := r.tracker.Active(n.Key)
	from, ok := r.detected[n.Key]
	switch {
	case !ok || from == tier:
		return found
	case from > tier:
		return r.registry.AtTier(found, tier)
	}

	k := tieredKey{key: n.Key, tier: tier}
	extra, ok := r.promoted[k]
	if !ok {
		extra = r.detectPromoted(n, nil, from, tier)
		r.promoted[k] = extra
	}
	return append(found, themes.CloneInstances(extra)...)
}

// initialTier is the tier a new position is first analyzed at: full for the
// played move, otherwise inherited from the parent.
func (r *run) initialTier(e *entry, parent *graph.Node) criticality.Tier {
	if e.played {
		return criticality.Full
	}
	return parent.Tier()
}

// analyze returns the artifact for pos through the cache. When evaluation
// fails it returns a partial artifact (themes and criticality without
// lines) together with the error; the partial result is never cached.
func (r *run) analyze(ctx context.Context, pos position, parent *graph.Node, tier criticality.Tier) (*artifact.Artifact, bool, error) {
	in, err := r.input(pos, parent, tier)
	if err != nil {
		return nil, false, err
	}

	key := artifact.Key{
		Position: pos.key,
		Depth:    r.cfg.TierDepths.For(tier),
		Version:  r.evaluator.Version(),
	}

	var partial *artifact.Artifact
	a, hit, err := r.loader.GetOrCompute(ctx, key, func(ctx context.Context) (*artifact.Artifact, error) {
		a, err := r.compute(ctx, key, in, !pos.terminal)
		if err != nil {
			partial = a
			return nil, err
		}
		return a, nil
	})
	if err == nil {
		return a, hit, nil
	}
	if partial == nil {
		partial, _ = r.compute(ctx, key, in, false)
	}
	return partial, false, err
}

// input gathers everything criticality needs from the parent.
type input struct {
	pos          position
	snap         *board.Snapshot
	tier         criticality.Tier
	parentSnap   *board.Snapshot
	parentLines  []engine.Line
	parentThemes []themes.Instance
}

func (r *run) input(pos position, parent *graph.Node, tier criticality.Tier) (input, error) {
	snap, err := board.FromFEN(pos.fen)
	if err != nil {
		return input{}, err
	}
	in := input{pos: pos, snap: snap, tier: tier}
	if parent == nil {
		return in, nil
	}
	if in.parentSnap, err = board.FromFEN(parent.FEN); err != nil {
		return input{}, err
	}
	in.parentLines, _ = parent.Evaluation()
	in.parentThemes = r.themesAt(parent, tier)
	return in, nil
}

func (r *run) compute(ctx context.Context, key artifact.Key, in input, evaluate bool) (*artifact.Artifact, error) {
	a := &artifact.Artifact{
		PositionKey:     key.Position,
		Depth:           key.Depth,
		Tier:            in.tier,
		ProviderVersion: key.Version,
		ComputedAt:      time.Now().UTC(),
	}

	var evalErr error
	if evaluate {
		a.Lines, a.Predictions, evalErr = r.evaluate(ctx, in.pos.fen, key.Depth)
	}

	detected := r.registry.Detect(in.snap, in.pos.ply, in.tier)
	r.noteFailures(detected.Failures)
	a.Themes = detected.Themes

	crit := r.score(in, a.Lines, a.Themes)
	a.Criticality = &crit
	return a, evalErr
}

// evaluate fans the evaluator and the optional predictor out concurrently.
// A predictor failure is logged and ignored.
func (r *run) evaluate(ctx context.Context, fenStr string, depth int) ([]engine.Line, []engine.Prediction, error) {
	ctx, span := tracer.Start(ctx, "explore.Evaluate", trace.WithAttributes(
		attribute.Int("lookahead.eval_depth", depth),
	))
	defer span.End()
	defer stats.ObserveSince(r.stats, stats.MetricEvalSeconds, time.Now())

	var (
		lines []engine.Line
		preds []engine.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = r.evaluator.Evaluate(gctx, fenStr, depth, r.cfg.LinesPerNode)
		return err
	})
	if r.predictor != nil && r.cfg.PredictionRating > 0 {
		g.Go(func() error {
			p, err := r.predictor.Predict(gctx, fenStr, r.cfg.PredictionRating)
			if err != nil {
				r.logger.Debug("prediction failed", zap.String("fen", fenStr), zap.Error(err))
				return nil
			}
			preds = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return lines, preds, nil
}

// score computes criticality from the mover's point of view.
func (r *run) score(in input, lines []engine.Line, found []themes.Instance) criticality.Result {
	var ci criticality.Input
	for _, t := range found {
		if t.Category == themes.Tactical {
			ci.TacticalThemes++
		}
	}

	var prev []themes.Instance
	if in.parentSnap != nil {
		prev = in.parentThemes
	}
	emerged := 0
	explained := 0
	for _, d := range lifecycle.Diff(prev, found) {
		if d.Transition != themes.Emerged {
			continue
		}
		emerged++
		if r.explained[d.Theme.Key()] {
			explained++
		}
	}
	ci.NovelThemes = emerged
	ci.AlreadyExplained = emerged > 0 && explained == emerged

	if in.parentSnap == nil {
		return r.scorer.Score(ci)
	}

	mover := in.parentSnap.Turn
	white := mover == board.White
	ci.KingExposureBefore = in.parentSnap.KingExposure(mover)
	ci.KingExposureAfter = in.snap.KingExposure(mover)

	if len(in.parentLines) > 0 {
		before := in.parentLines[0].Score
		var after engine.Score
		switch {
		case in.pos.checkmate:
			after = engine.MateIn(1)
			if !white {
				after = after.Negate()
			}
		case len(lines) > 0:
			after = lines[0].Score
		default:
			return r.scorer.Score(ci)
		}
		ci.WinProbDelta = engine.ForSide(engine.WinProbability(after), white) -
			engine.ForSide(engine.WinProbability(before), white)
		ci.CPDelta = float64(sideCP(after, white) - sideCP(before, white))
	}
	return r.scorer.Score(ci)
}

// pushChildren turns a node's lines and predictions into candidates.
// Child priority never exceeds the parent's, so popped priorities never
// increase over a run.
func (r *run) pushChildren(n *graph.Node, ceiling float64, lines []engine.Line, preds []engine.Prediction) {
	depth := n.Depth + 1
	decay := math.Pow(r.cfg.DepthDecay, float64(depth-1))
	var crit float64
	if c, ok := n.Criticality(); ok {
		crit = c.Score
	}

	white := moverOf(n.FEN) == board.White
	if len(lines) > 0 {
		best := sideCP(lines[0].Score, white)
		for _, l := range lines {
			if l.Move == "" {
				continue
			}
			loss := max(0, best-sideCP(l.Score, white))
			strength := 100 * (1 - math.Min(1, float64(loss)/strengthScale))
			p := (critWeight*crit + strengthWeight*strength) * decay
			cp := l.Score.Centipawns()
			r.enqueue(n, l.Move, math.Min(p, ceiling), depth, &cp, false)
		}
	}

	for _, pr := range preds {
		if pr.Probability < predictionFloor {
			continue
		}
		p := strengthWeight * 100 * pr.Probability * decay
		r.enqueue(n, pr.Move, math.Min(p, ceiling), depth, nil, false)
	}
}

func (r *run) enqueue(parent *graph.Node, move string, priority float64, depth int, cp *int, played bool) {
	id := parent.Key + " " + move
	if r.queued[id] {
		return
	}
	r.queued[id] = true

	if depth > r.cfg.MaxDepth {
		r.res.CandidatesPruned++
		r.stats.IncCounter(stats.MetricCandidatesPruned, 1)
		return
	}
	r.frontier.push(&entry{
		parent:   parent.Key,
		move:     move,
		priority: priority,
		depth:    depth,
		cp:       cp,
		played:   played,
	})
}

// annotate records the frontier hints on the edge just expanded.
func (r *run) annotate(e *entry) {
	if edge, ok := r.graph.Edge(e.parent, e.move); ok {
		edge.Priority = e.priority
		edge.CP = e.cp
	}
}

func (r *run) countHit() {
	r.res.CacheHits++
	r.res.NodesSkipped++
	r.stats.IncCounter(stats.MetricNodesSkipped, 1)
}

func (r *run) noteFailures(failures []themes.DetectorFailure) {
	for _, f := range failures {
		r.res.Warnings = append(r.res.Warnings, f.Error())
	}
}

func (r *run) warn(msg string, err error, fields ...zap.Field) {
	r.res.Warnings = append(r.res.Warnings, fmt.Sprintf("%s: %v", msg, err))
	r.logger.Warn(msg, append(fields, zap.Error(err))...)
}

func moverOf(fenStr string) board.Color {
	side, err := fen.SideToMove(fenStr)
	if err != nil || side == "w" {
		return board.White
	}
	return board.Black
}

func sideCP(s engine.Score, white bool) int {
	cp := s.Centipawns()
	if white {
		return cp
	}
	return -cp
}
