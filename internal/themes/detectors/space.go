package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// spaceMargin is the minimum difference in controlled squares reported as
// a space advantage.
const spaceMargin = 4

// Space compares the safe central squares each side holds behind its pawns.
type Space struct{}

var _ themes.Detector = (*Space)(nil)

// NewSpace creates a space detector.
func NewSpace() *Space { return &Space{} }

func (d *Space) Info() themes.Info {
	return themes.Info{
		ID:       "space",
		Types:    []themes.Type{themes.SpaceAdvantage},
		Category: themes.Positional,
		MinTier:  criticality.Full,
		Priority: 30,
	}
}

func (d *Space) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	white, black := SpaceCount(snap, board.White), SpaceCount(snap, board.Black)

	c, diff := board.White, white-black
	if diff < 0 {
		c, diff = board.Black, -diff
	}
	if diff < spaceMargin {
		return nil, nil
	}

	sev := themes.Moderate
	if diff >= 2*spaceMargin {
		sev = themes.Significant
	}
	return []themes.Instance{{
		Type:        themes.SpaceAdvantage,
		Category:    themes.Positional,
		Beneficiary: c,
		Primary:     spearhead(snap, c),
		Severity:    sev,
		Confidence:  0.6,
		Ply:         ply,
		Explanation: fmt.Sprintf("%s controls more space", c),
		Detail:      fmt.Sprintf("%d safe squares against %d", max(white, black), min(white, black)),
	}}, nil
}

// SpaceCount counts squares on files c to f, on c's second to fourth
// relative ranks, that sit behind one of c's pawns and are not attacked by
// an enemy pawn.
func SpaceCount(snap *board.Snapshot, c board.Color) int {
	n := 0
	for f := 2; f <= 5; f++ {
		for rel := 1; rel <= 4; rel++ {
			r := rel
			if c == board.Black {
				r = 7 - rel
			}
			sq := board.SquareAt(f, r)
			if enemyPawnAttacks(snap, sq, c.Other()) {
				continue
			}
			if behindPawn(snap, sq, c) {
				n++
			}
		}
	}
	return n
}

func enemyPawnAttacks(snap *board.Snapshot, sq board.Square, enemy board.Color) bool {
	for _, a := range snap.AttackersOf(sq, enemy) {
		if snap.At(a).Type == board.Pawn {
			return true
		}
	}
	return false
}

func behindPawn(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, p := range snap.PiecesOf(c, board.Pawn) {
		if p.File() == sq.File() && p.RelativeRank(c) > sq.RelativeRank(c) {
			return true
		}
	}
	return false
}

// spearhead returns c's most advanced central pawn.
func spearhead(snap *board.Snapshot, c board.Color) board.Square {
	best := board.NoSquare
	for _, p := range snap.PiecesOf(c, board.Pawn) {
		if p.File() < 2 || p.File() > 5 {
			continue
		}
		if best == board.NoSquare || p.RelativeRank(c) > best.RelativeRank(c) {
			best = p
		}
	}
	return best
}
