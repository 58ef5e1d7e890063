package engine

import (
	"context"
	"errors"
	"testing"
)

const ratingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// bandPredictor favors e2e4 most strongly at one rating.
type bandPredictor struct {
	peak int
	fail map[int]bool
}

func (p bandPredictor) Predict(ctx context.Context, _ string, rating int) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.fail[rating] {
		return nil, errors.New("model error")
	}
	if rating == p.peak {
		return []Prediction{{Move: "e2e4", Probability: 0.8}, {Move: "d2d4", Probability: 0.1}}, nil
	}
	return []Prediction{{Move: "d2d4", Probability: 0.6}, {Move: "e2e4", Probability: 0.2}}, nil
}

func TestRatingBands(t *testing.T) {
	bands := RatingBands()
	if len(bands) != 9 || bands[0] != MinRating || bands[len(bands)-1] != MaxRating {
		t.Errorf("RatingBands() = %v", bands)
	}
}

func TestEstimateRating(t *testing.T) {
	ctx := context.Background()
	moves := []PlayedMove{{FEN: ratingFEN, Move: "e2e4"}, {FEN: ratingFEN, Move: "e2e4"}}

	got, err := EstimateRating(ctx, bandPredictor{peak: 1500}, moves)
	if err != nil {
		t.Fatalf("EstimateRating() error = %v", err)
	}
	want := RatingEstimate{Rating: 1500, Low: 1220, High: 1780, Moves: 2}
	if got != want {
		t.Errorf("EstimateRating() = %+v, want %+v", got, want)
	}
}

func TestEstimateRating_IntervalClamped(t *testing.T) {
	moves := make([]PlayedMove, 25)
	for i := range moves {
		moves[i] = PlayedMove{FEN: ratingFEN, Move: "e2e4"}
	}
	got, err := EstimateRating(context.Background(), bandPredictor{peak: 1900}, moves)
	if err != nil {
		t.Fatalf("EstimateRating() error = %v", err)
	}
	if got.Rating != 1900 || got.Low != 1800 || got.High != MaxRating {
		t.Errorf("EstimateRating() = %+v, want 1900 in [1800, 1900]", got)
	}
}

func TestEstimateRating_UnlistedMove(t *testing.T) {
	// A move no band predicts scores the same everywhere; ties go low.
	moves := []PlayedMove{{FEN: ratingFEN, Move: "h2h4"}}
	got, err := EstimateRating(context.Background(), bandPredictor{peak: 1500}, moves)
	if err != nil {
		t.Fatalf("EstimateRating() error = %v", err)
	}
	if got.Rating != MinRating {
		t.Errorf("Rating = %d, want %d", got.Rating, MinRating)
	}
}

func TestEstimateRating_FailedBandSkipped(t *testing.T) {
	// The failing band takes no penalty, so it outscores the others.
	moves := []PlayedMove{{FEN: ratingFEN, Move: "h2h4"}}
	p := bandPredictor{peak: 1500, fail: map[int]bool{1700: true}}
	got, err := EstimateRating(context.Background(), p, moves)
	if err != nil {
		t.Fatalf("EstimateRating() error = %v", err)
	}
	if got.Rating != 1700 {
		t.Errorf("Rating = %d, want 1700", got.Rating)
	}
}

func TestEstimateRating_Errors(t *testing.T) {
	ctx := context.Background()
	p := bandPredictor{peak: 1500}

	if _, err := EstimateRating(ctx, p, nil); !errors.Is(err, ErrNoMoves) {
		t.Errorf("no moves: error = %v, want ErrNoMoves", err)
	}
	if _, err := EstimateRating(ctx, p, []PlayedMove{{FEN: "garbage", Move: "e2e4"}}); err == nil {
		t.Error("invalid FEN: expected error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := EstimateRating(canceled, p, []PlayedMove{{FEN: ratingFEN, Move: "e2e4"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: error = %v, want context.Canceled", err)
	}
}
