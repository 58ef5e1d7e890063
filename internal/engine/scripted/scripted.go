// Package scripted provides deterministic in-memory evaluation and
// prediction providers for tests and offline runs.
package scripted

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/fen"
)

// Compile-time checks.
var (
	_ engine.Evaluator = (*Evaluator)(nil)
	_ engine.Predictor = (*Predictor)(nil)
)

// Generator produces lines for positions that have no scripted entry.
type Generator func(fen string, lines int) ([]engine.Line, error)

// Evaluator returns scripted lines keyed by position key.
type Evaluator struct {
	mu        sync.RWMutex
	lines     map[string][]engine.Line
	failures  map[string]error
	failAll   error
	generator Generator
	latency   time.Duration
	version   string

	calls atomic.Int64
}

// NewEvaluator creates an empty scripted evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		lines:    make(map[string][]engine.Line),
		failures: make(map[string]error),
		version:  "scripted/1",
	}
}

// Set scripts the lines returned for a position.
// The lines are copied to prevent caller mutations from affecting the evaluator.
func (e *Evaluator) Set(fenStr string, lines ...engine.Line) {
	key := keyOf(fenStr)
	copied := make([]engine.Line, len(lines))
	copy(copied, lines)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines[key] = copied
}

// Fail makes evaluations of a position return err.
func (e *Evaluator) Fail(fenStr string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[keyOf(fenStr)] = err
}

// FailAll makes every evaluation return err. A nil err clears it.
func (e *Evaluator) FailAll(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAll = err
}

// SetGenerator sets the fallback for unscripted positions.
func (e *Evaluator) SetGenerator(g Generator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generator = g
}

// SetLatency delays every evaluation by d, or until the context ends.
func (e *Evaluator) SetLatency(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latency = d
}

// SetVersion overrides the reported provider version.
func (e *Evaluator) SetVersion(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.version = v
}

// Calls returns the number of Evaluate calls made.
func (e *Evaluator) Calls() int64 {
	return e.calls.Load()
}

// Version returns the provider version.
func (e *Evaluator) Version() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Evaluate returns the scripted lines for fen, truncated to lines.
func (e *Evaluator) Evaluate(ctx context.Context, fenStr string, depth, lines int) ([]engine.Line, error) {
	e.calls.Add(1)

	e.mu.RLock()
	latency := e.latency
	failAll := e.failAll
	key := keyOf(fenStr)
	failure := e.failures[key]
	scripted, ok := e.lines[key]
	gen := e.generator
	e.mu.RUnlock()

	if err := wait(ctx, latency); err != nil {
		return nil, err
	}
	if failAll != nil {
		return nil, failAll
	}
	if failure != nil {
		return nil, failure
	}

	if !ok {
		if gen == nil {
			return nil, engine.ErrNoEvaluation
		}
		generated, err := gen(fenStr, lines)
		if err != nil {
			return nil, err
		}
		scripted = generated
	}

	n := engine.ClampLines(lines)
	if len(scripted) < n {
		n = len(scripted)
	}
	out := make([]engine.Line, n)
	copy(out, scripted[:n])
	for i := range out {
		if out[i].Depth == 0 {
			out[i].Depth = depth
		}
	}
	return out, nil
}

// Predictor returns scripted human-move predictions keyed by position key.
type Predictor struct {
	mu          sync.RWMutex
	predictions map[string][]engine.Prediction
	failAll     error
	latency     time.Duration

	calls atomic.Int64
}

// NewPredictor creates an empty scripted predictor.
func NewPredictor() *Predictor {
	return &Predictor{predictions: make(map[string][]engine.Prediction)}
}

// Set scripts the predictions for a position.
func (p *Predictor) Set(fenStr string, preds ...engine.Prediction) {
	copied := make([]engine.Prediction, len(preds))
	copy(copied, preds)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.predictions[keyOf(fenStr)] = copied
}

// FailAll makes every prediction return err. A nil err clears it.
func (p *Predictor) FailAll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = err
}

// SetLatency delays every prediction by d, or until the context ends.
func (p *Predictor) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// Calls returns the number of Predict calls made.
func (p *Predictor) Calls() int64 {
	return p.calls.Load()
}

// Predict returns the top predictions for fen sorted by probability.
// Unscripted positions return no predictions.
func (p *Predictor) Predict(ctx context.Context, fenStr string, rating int) ([]engine.Prediction, error) {
	p.calls.Add(1)
	if err := engine.ValidateRating(rating); err != nil {
		return nil, err
	}

	p.mu.RLock()
	latency := p.latency
	failAll := p.failAll
	preds := p.predictions[keyOf(fenStr)]
	p.mu.RUnlock()

	if err := wait(ctx, latency); err != nil {
		return nil, err
	}
	if failAll != nil {
		return nil, failAll
	}
	return engine.TopK(preds, engine.TopPredictions), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func keyOf(fenStr string) string {
	if key, err := fen.Normalize(fenStr); err == nil {
		return key
	}
	return fenStr
}
