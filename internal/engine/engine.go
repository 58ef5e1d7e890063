// Package engine defines the evaluation and human-move-prediction providers
// consumed by the explorer, plus score helpers shared by their callers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	// ErrInvalidRating indicates a predictor rating outside the supported range.
	ErrInvalidRating = errors.New("engine: rating out of range")

	// ErrUnavailable indicates the provider could not serve the request,
	// for example because every pooled engine is busy or dead.
	ErrUnavailable = errors.New("engine: provider unavailable")

	// ErrNoEvaluation indicates the provider has no evaluation for a position.
	ErrNoEvaluation = errors.New("engine: no evaluation")
)

const (
	// DefaultDepth is the search depth used when a caller does not set one.
	DefaultDepth = 20

	// MinLines and MaxLines bound the multi-line count.
	MinLines = 1
	MaxLines = 10

	// MinRating and MaxRating bound the predictor rating.
	MinRating = 1100
	MaxRating = 1900

	// TopPredictions is the number of predictions a predictor returns.
	TopPredictions = 5

	// MateScore is the centipawn stand-in for a forced mate.
	MateScore = 10000
)

// Score is an evaluation from White's perspective. Exactly one of CP and
// Mate is set. Positive values favor White.
type Score struct {
	CP   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

// CPScore returns a centipawn score.
func CPScore(cp int) Score {
	return Score{CP: &cp}
}

// MateIn returns a mate score. Positive n means White mates.
func MateIn(n int) Score {
	return Score{Mate: &n}
}

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool {
	return s.Mate != nil
}

// Centipawns returns the score in centipawns, mapping mates to
// ±(MateScore - distance).
func (s Score) Centipawns() int {
	switch {
	case s.Mate != nil:
		m := *s.Mate
		if m > 0 {
			return MateScore - m
		}
		if m < 0 {
			return -MateScore - m
		}
		return 0
	case s.CP != nil:
		return *s.CP
	default:
		return 0
	}
}

// Negate flips the perspective of the score.
func (s Score) Negate() Score {
	switch {
	case s.Mate != nil:
		return MateIn(-*s.Mate)
	case s.CP != nil:
		return CPScore(-*s.CP)
	default:
		return s
	}
}

func (s Score) String() string {
	if s.Mate != nil {
		return "#" + strconv.Itoa(*s.Mate)
	}
	if s.CP == nil {
		return "?"
	}
	return fmt.Sprintf("%+.2f", float64(*s.CP)/100)
}

// Line is one candidate move with its evaluation and principal variation.
type Line struct {
	Move  string   `json:"move"` // UCI
	Score Score    `json:"score"`
	PV    []string `json:"pv,omitempty"` // UCI, starting with Move
	Depth int      `json:"depth"`
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	if l.Score.CP != nil {
		cp := *l.Score.CP
		l.Score.CP = &cp
	}
	if l.Score.Mate != nil {
		m := *l.Score.Mate
		l.Score.Mate = &m
	}
	if l.PV != nil {
		l.PV = append([]string(nil), l.PV...)
	}
	return l
}

// CloneLines deep-copies lines.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// Evaluator returns ordered multi-line evaluations for a position.
type Evaluator interface {
	// Evaluate returns up to lines candidates ordered best first.
	Evaluate(ctx context.Context, fen string, depth, lines int) ([]Line, error)

	// Version identifies the provider and its scoring semantics.
	// Cached artifacts are namespaced by it.
	Version() string
}

// Prediction is a human move prediction.
type Prediction struct {
	Move        string  `json:"move"` // UCI
	Probability float64 `json:"probability"`
}

// Predictor predicts the moves a human of the given rating would play.
type Predictor interface {
	Predict(ctx context.Context, fen string, rating int) ([]Prediction, error)
}

// ClampLines limits a requested multi-line count to [MinLines, MaxLines].
func ClampLines(n int) int {
	if n < MinLines {
		return MinLines
	}
	if n > MaxLines {
		return MaxLines
	}
	return n
}

// ValidateRating checks a predictor rating.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidRating, rating, MinRating, MaxRating)
	}
	return nil
}

// winProbScale is the logistic coefficient mapping centipawns to winning
// chances.
const winProbScale = 0.00368208

// WinProbability converts a White-perspective score into White's winning
// chances in [0, 100]. Mates map to 0 or 100.
func WinProbability(s Score) float64 {
	if s.Mate != nil {
		switch {
		case *s.Mate > 0:
			return 100
		case *s.Mate < 0:
			return 0
		}
	}
	cp := float64(s.Centipawns())
	return 50 + 50*(2/(1+math.Exp(-winProbScale*cp))-1)
}

// ForSide returns a White-perspective win probability from the given
// side's point of view.
func ForSide(whiteWinProb float64, white bool) float64 {
	if white {
		return whiteWinProb
	}
	return 100 - whiteWinProb
}

// TopK sorts predictions by probability, highest first, and keeps at most
// k of them. Ties keep their input order.
func TopK(preds []Prediction, k int) []Prediction {
	out := make([]Prediction, len(preds))
	copy(out, preds)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
