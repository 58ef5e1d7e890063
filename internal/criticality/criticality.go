// Package criticality scores how important a position is to analyze or
// explain, and recommends an analysis tier from the score.
package criticality

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidWeights indicates weights outside [0, 1] or a non-positive
// blunder threshold.
var ErrInvalidWeights = errors.New("criticality: invalid weights")

// DefaultBlunderThreshold is the win-probability swing, in percentage
// points, treated as a blunder.
const DefaultBlunderThreshold = 20.0

// Weights are the factor weights of the score formula.
type Weights struct {
	WinProb    float64 `yaml:"winProb" json:"winProb"`
	CP         float64 `yaml:"cp" json:"cp"`
	Tactical   float64 `yaml:"tactical" json:"tactical"`
	Novelty    float64 `yaml:"novelty" json:"novelty"`
	KingSafety float64 `yaml:"kingSafety" json:"kingSafety"`
	Repetition float64 `yaml:"repetition" json:"repetition"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		WinProb:    0.30,
		CP:         0.25,
		Tactical:   0.20,
		Novelty:    0.15,
		KingSafety: 0.10,
		Repetition: 0.10,
	}
}

// Validate checks every weight is in [0, 1].
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"winProb": w.WinProb, "cp": w.CP, "tactical": w.Tactical,
		"novelty": w.Novelty, "kingSafety": w.KingSafety, "repetition": w.Repetition,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidWeights, name, v)
		}
	}
	return nil
}

// Input carries the raw signals for one position.
type Input struct {
	// WinProbDelta is the win-probability change in percentage points.
	WinProbDelta float64
	// CPDelta is the evaluation change in centipawns.
	CPDelta float64
	// TacticalThemes counts active tactical themes.
	TacticalThemes int
	// NovelThemes counts themes that emerged at this position.
	NovelThemes int
	// KingExposureBefore and KingExposureAfter are the mover's king
	// exposure before and after the move.
	KingExposureBefore int
	KingExposureAfter  int
	// AlreadyExplained marks a position whose ideas were already narrated.
	AlreadyExplained bool
}

// Factors is the normalized per-factor breakdown, each in [0, 1].
type Factors struct {
	WinProb    float64 `json:"winProb"`
	CP         float64 `json:"cp"`
	Volatility float64 `json:"volatility"`
	Novelty    float64 `json:"novelty"`
	KingRisk   float64 `json:"kingRisk"`
	Repetition float64 `json:"repetition"`
}

// Result is a criticality score with its breakdown and recommended tier.
type Result struct {
	Score   float64 `json:"score"`
	Factors Factors `json:"factors"`
	Tier    Tier    `json:"tier"`
	Reason  string  `json:"reason"`
}

// Scorer computes criticality. It is stateless and safe for concurrent use.
type Scorer struct {
	weights          Weights
	blunderThreshold float64
}

// NewScorer creates a scorer with the given weights and blunder threshold.
func NewScorer(w Weights, blunderThreshold float64) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if blunderThreshold <= 0 {
		return nil, fmt.Errorf("%w: blunder threshold %v", ErrInvalidWeights, blunderThreshold)
	}
	return &Scorer{weights: w, blunderThreshold: blunderThreshold}, nil
}

// DefaultScorer returns a scorer with default weights and threshold.
func DefaultScorer() *Scorer {
	return &Scorer{weights: DefaultWeights(), blunderThreshold: DefaultBlunderThreshold}
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the criticality of a position, clamped to [0, 100].
// A win-probability swing of at least the blunder threshold recommends the
// full tier regardless of the score.
func (s *Scorer) Score(in Input) Result {
	f := Factors{
		WinProb:    math.Min(1, math.Abs(in.WinProbDelta)/(s.blunderThreshold*1.25)),
		CP:         math.Min(1, math.Abs(in.CPDelta)/300),
		Volatility: Volatility(in.TacticalThemes),
		Novelty:    Novelty(in.NovelThemes),
		KingRisk:   KingRisk(in.KingExposureBefore, in.KingExposureAfter),
	}
	if in.AlreadyExplained {
		f.Repetition = 1
	}

	w := s.weights
	raw := 100*(w.WinProb*f.WinProb+w.CP*f.CP+w.Tactical*f.Volatility+w.Novelty*f.Novelty+w.KingSafety*f.KingRisk) -
		100*w.Repetition*f.Repetition
	score := clamp(raw, 0, 100)

	tier := TierFor(score)
	blunder := math.Abs(in.WinProbDelta) >= s.blunderThreshold
	if blunder {
		tier = Full
	}

	return Result{
		Score:   score,
		Factors: f,
		Tier:    tier,
		Reason:  reason(in, f, blunder),
	}
}

// Volatility maps a tactical theme count to [0, 1): 0, 0.4, 0.7, then
// halving increments toward 1.
func Volatility(n int) float64 {
	return steps(n, 0.4, 0.7)
}

// Novelty maps a count of newly emerged themes to [0, 1): 0, 0.5, 0.75,
// then halving increments toward 1.
func Novelty(n int) float64 {
	return steps(n, 0.5, 0.75)
}

func steps(n int, one, two float64) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return one
	case n == 2:
		return two
	default:
		return two + (1-two)*(1-math.Pow(0.5, float64(n-2)))
	}
}

// KingRisk scores an increase in king exposure; decreases score zero.
func KingRisk(before, after int) float64 {
	increase := after - before
	if increase <= 0 {
		return 0
	}
	return math.Min(1, float64(increase)/150)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func reason(in Input, f Factors, blunder bool) string {
	var parts []string
	if blunder {
		parts = append(parts, fmt.Sprintf("blunder-sized swing of %.1f%%", math.Abs(in.WinProbDelta)))
	} else if f.WinProb > 0 {
		parts = append(parts, fmt.Sprintf("win probability moved %.1f%%", math.Abs(in.WinProbDelta)))
	}
	if f.CP >= 0.5 {
		parts = append(parts, fmt.Sprintf("evaluation moved %.0fcp", math.Abs(in.CPDelta)))
	}
	if in.TacticalThemes > 0 {
		parts = append(parts, fmt.Sprintf("%d tactical theme(s)", in.TacticalThemes))
	}
	if in.NovelThemes > 0 {
		parts = append(parts, fmt.Sprintf("%d new theme(s)", in.NovelThemes))
	}
	if f.KingRisk > 0 {
		parts = append(parts, "king safety worsened")
	}
	if in.AlreadyExplained {
		parts = append(parts, "already explained")
	}
	if len(parts) == 0 {
		return "quiet position"
	}
	return strings.Join(parts, "; ")
}
