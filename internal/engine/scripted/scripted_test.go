package scripted

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/discochess/lookahead/internal/engine"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestEvaluator_Scripted(t *testing.T) {
	e := NewEvaluator()
	e.Set(startFEN,
		engine.Line{Move: "e2e4", Score: engine.CPScore(30)},
		engine.Line{Move: "d2d4", Score: engine.CPScore(25)},
		engine.Line{Move: "g1f3", Score: engine.CPScore(20)},
	)

	// Lookup ignores move counters.
	got, err := e.Evaluate(context.Background(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 4 9", 12, 2)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Evaluate() returned %d lines, want 2", len(got))
	}
	if got[0].Move != "e2e4" || got[0].Depth != 12 {
		t.Errorf("Evaluate()[0] = %+v, want e2e4 at depth 12", got[0])
	}
	if e.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", e.Calls())
	}
}

func TestEvaluator_Missing(t *testing.T) {
	e := NewEvaluator()
	if _, err := e.Evaluate(context.Background(), startFEN, 10, 3); !errors.Is(err, engine.ErrNoEvaluation) {
		t.Errorf("Evaluate() error = %v, want ErrNoEvaluation", err)
	}

	e.SetGenerator(func(string, int) ([]engine.Line, error) {
		return []engine.Line{{Move: "a2a3", Score: engine.CPScore(0)}}, nil
	})
	got, err := e.Evaluate(context.Background(), startFEN, 10, 3)
	if err != nil || len(got) != 1 {
		t.Errorf("Evaluate() = %v, %v, want one generated line", got, err)
	}
}

func TestEvaluator_Failures(t *testing.T) {
	boom := errors.New("boom")
	e := NewEvaluator()
	e.Set(startFEN, engine.Line{Move: "e2e4"})

	e.Fail(startFEN, boom)
	if _, err := e.Evaluate(context.Background(), startFEN, 10, 1); !errors.Is(err, boom) {
		t.Errorf("Evaluate() error = %v, want boom", err)
	}

	e.FailAll(engine.ErrUnavailable)
	if _, err := e.Evaluate(context.Background(), startFEN, 10, 1); !errors.Is(err, engine.ErrUnavailable) {
		t.Errorf("Evaluate() error = %v, want ErrUnavailable", err)
	}
}

func TestEvaluator_LatencyHonorsContext(t *testing.T) {
	e := NewEvaluator()
	e.Set(startFEN, engine.Line{Move: "e2e4"})
	e.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := e.Evaluate(ctx, startFEN, 10, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Evaluate() error = %v, want deadline exceeded", err)
	}
}

func TestPredictor(t *testing.T) {
	p := NewPredictor()
	p.Set(startFEN,
		engine.Prediction{Move: "d2d4", Probability: 0.3},
		engine.Prediction{Move: "e2e4", Probability: 0.45},
	)

	got, err := p.Predict(context.Background(), startFEN, 1500)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(got) != 2 || got[0].Move != "e2e4" {
		t.Errorf("Predict() = %+v, want e2e4 first", got)
	}

	if _, err := p.Predict(context.Background(), startFEN, 2500); !errors.Is(err, engine.ErrInvalidRating) {
		t.Errorf("Predict() error = %v, want ErrInvalidRating", err)
	}
}
