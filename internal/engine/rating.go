package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/discochess/lookahead/internal/fen"
)

// ErrNoMoves indicates a rating estimate was requested without moves.
var ErrNoMoves = errors.New("engine: at least one move required")

const (
	// RatingStep is the spacing of the bands EstimateRating chooses from.
	RatingStep = 100

	// minLikelihood stands in for moves the predictor does not list.
	minLikelihood = 0.001
)

// PlayedMove is a move a player chose in a position.
type PlayedMove struct {
	FEN  string `json:"fen"`
	Move string `json:"move"` // UCI
}

// RatingEstimate is the rating band most consistent with a set of moves.
type RatingEstimate struct {
	Rating int `json:"rating"`
	Low    int `json:"low"`
	High   int `json:"high"`
	Moves  int `json:"moves"`
}

// RatingBands returns the ratings from MinRating to MaxRating in RatingStep
// increments.
func RatingBands() []int {
	var out []int
	for r := MinRating; r <= MaxRating; r += RatingStep {
		out = append(out, r)
	}
	return out
}

// EstimateRating picks the band under which p assigns the played moves the
// highest log-likelihood. A band whose prediction fails for a position
// takes no penalty for it. The interval narrows by 10 points per move from
// ±300 down to ±100, clamped to the supported range. Ties go to the lower
// band.
func EstimateRating(ctx context.Context, p Predictor, moves []PlayedMove) (RatingEstimate, error) {
	if len(moves) == 0 {
		return RatingEstimate{}, ErrNoMoves
	}
	for _, m := range moves {
		if _, err := fen.Normalize(m.FEN); err != nil {
			return RatingEstimate{}, fmt.Errorf("engine: estimating rating: %w", err)
		}
	}

	bands := RatingBands()
	ll := make([]float64, len(bands))
	for _, m := range moves {
		for i, rating := range bands {
			preds, err := p.Predict(ctx, m.FEN, rating)
			if err != nil {
				if ctx.Err() != nil {
					return RatingEstimate{}, ctx.Err()
				}
				continue
			}
			prob := minLikelihood
			for _, pr := range preds {
				if pr.Move == m.Move {
					prob = math.Max(pr.Probability, minLikelihood)
					break
				}
			}
			ll[i] += math.Log(prob)
		}
	}

	best := 0
	for i := range bands {
		if ll[i] > ll[best] {
			best = i
		}
	}

	width := max(100, 300-10*len(moves))
	rating := bands[best]
	return RatingEstimate{
		Rating: rating,
		Low:    max(MinRating, rating-width),
		High:   min(MaxRating, rating+width),
		Moves:  len(moves),
	}, nil
}
