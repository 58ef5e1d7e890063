// Package uci implements engine.Evaluator on top of UCI chess engines such
// as Stockfish, using a pool of engine processes.
package uci

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/notnil/chess"
	chessuci "github.com/notnil/chess/uci"
	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/engine"
)

// ErrClosed indicates the evaluator has been closed.
var ErrClosed = errors.New("uci: evaluator closed")

// Compile-time check that Evaluator implements engine.Evaluator.
var _ engine.Evaluator = (*Evaluator)(nil)

// Option configures an Evaluator.
type Option interface {
	apply(*options)
}

type options struct {
	poolSize       int
	acquireTimeout time.Duration
	version        string
	fallback       string
	logger         *zap.Logger
}

func defaultOptions() options {
	return options{
		poolSize:       2,
		acquireTimeout: 30 * time.Second,
		logger:         zap.NewNop(),
	}
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithPoolSize sets the number of engine processes. Default is 2.
func WithPoolSize(n int) Option {
	return optionFunc(func(o *options) {
		o.poolSize = n
	})
}

// WithAcquireTimeout bounds how long Evaluate waits for a free engine.
// Default is 30s.
func WithAcquireTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.acquireTimeout = d
	})
}

// WithVersion sets the provider version string used to namespace cached
// artifacts. If not set, the version is "uci/" followed by the name the
// engine reports in its handshake.
func WithVersion(v string) Option {
	return optionFunc(func(o *options) {
		o.version = v
	})
}

// withFallbackVersion sets the version used when the engine reports no
// name.
func withFallbackVersion(v string) Option {
	return optionFunc(func(o *options) {
		o.fallback = v
	})
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// Evaluator evaluates positions with pooled UCI engines. Multiple lines are
// produced by repeating the search with the previous best moves excluded
// from the root move list.
// An Evaluator is safe for concurrent use by multiple goroutines.
type Evaluator struct {
	pool           *pool
	acquireTimeout time.Duration
	version        string
	logger         *zap.Logger
}

// New starts an evaluator whose engines are created by launch.
func New(launch Launcher, opts ...Option) (*Evaluator, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.poolSize < 1 {
		return nil, fmt.Errorf("uci: pool size %d must be positive", cfg.poolSize)
	}

	logger := cfg.logger.Named("uci")
	p, err := newPool(launch, cfg.poolSize, logger)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.version != "":
	case p.name != "":
		cfg.version = "uci/" + p.name
	case cfg.fallback != "":
		cfg.version = cfg.fallback
	default:
		cfg.version = "uci"
	}

	logger.Debug("engine pool started",
		zap.Int("size", cfg.poolSize),
		zap.String("version", cfg.version),
	)
	return &Evaluator{
		pool:           p,
		acquireTimeout: cfg.acquireTimeout,
		version:        cfg.version,
		logger:         logger,
	}, nil
}

// NewFromPath starts an evaluator running the engine binary at path.
// Engine options such as Threads and Hash are passed through verbatim. An
// engine that reports no name is versioned by the binary's file name.
func NewFromPath(path string, engineOptions map[string]string, opts ...Option) (*Evaluator, error) {
	fallback := withFallbackVersion("uci/" + filepath.Base(path))
	return New(Launch(path, engineOptions), append([]Option{fallback}, opts...)...)
}

// Version returns the provider version.
func (e *Evaluator) Version() string {
	return e.version
}

// Evaluate searches fen to depth and returns up to lines candidates,
// best first, with scores from White's perspective.
func (e *Evaluator) Evaluate(ctx context.Context, fenStr string, depth, lines int) ([]engine.Line, error) {
	pos, err := decode(fenStr)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = engine.DefaultDepth
	}

	remaining := pos.ValidMoves()
	n := engine.ClampLines(lines)
	if n > len(remaining) {
		n = len(remaining)
	}
	if n == 0 {
		return nil, nil
	}

	proc, err := e.pool.acquire(ctx, e.acquireTimeout)
	if err != nil {
		return nil, err
	}
	dead := false
	defer func() { e.pool.release(proc, dead) }()

	out := make([]engine.Line, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			break
		}

		search := chessuci.CmdGo{Depth: depth}
		if i > 0 {
			search.SearchMoves = remaining
		}
		if err := proc.Run(chessuci.CmdPosition{Position: pos}, search); err != nil {
			dead = true
			if len(out) > 0 {
				e.logger.Warn("engine failed mid search, returning partial lines",
					zap.String("fen", fenStr), zap.Int("lines", len(out)), zap.Error(err))
				return out, nil
			}
			return nil, fmt.Errorf("running engine: %w", err)
		}

		res := proc.SearchResults()
		if res.BestMove == nil {
			break
		}
		out = append(out, toLine(pos, res))
		remaining = without(remaining, res.BestMove)
	}

	if len(out) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, engine.ErrNoEvaluation
	}
	return out, nil
}

// Close stops every engine process.
func (e *Evaluator) Close() error {
	return e.pool.close()
}

// toLine converts a search result into a White-perspective line.
func toLine(pos *chess.Position, res chessuci.SearchResults) engine.Line {
	var score engine.Score
	if res.Info.Score.Mate != 0 {
		score = engine.MateIn(res.Info.Score.Mate)
	} else {
		score = engine.CPScore(res.Info.Score.CP)
	}
	if pos.Turn() == chess.Black {
		score = score.Negate()
	}

	pv := make([]string, 0, len(res.Info.PV))
	for _, m := range res.Info.PV {
		pv = append(pv, m.String())
	}
	best := res.BestMove.String()
	if len(pv) == 0 || pv[0] != best {
		pv = append([]string{best}, pv...)
	}

	return engine.Line{
		Move:  best,
		Score: score,
		PV:    pv,
		Depth: res.Info.Depth,
	}
}

func without(moves []*chess.Move, m *chess.Move) []*chess.Move {
	out := make([]*chess.Move, 0, len(moves))
	for _, mv := range moves {
		if mv.String() != m.String() {
			out = append(out, mv)
		}
	}
	return out
}

func decode(fenStr string) (*chess.Position, error) {
	fields := strings.Fields(fenStr)
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("decoding position: %w", err)
	}
	return chess.NewGame(opt).Position(), nil
}
