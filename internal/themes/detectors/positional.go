package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/themes"
)

// weakComplexMin is the number of weak squares of one color that form a
// complex.
const weakComplexMin = 3

// Positional finds outposts, weak squares, the bishop pair and bad bishops.
type Positional struct{}

var _ themes.Detector = (*Positional)(nil)

// NewPositional creates a positional detector.
func NewPositional() *Positional { return &Positional{} }

func (d *Positional) Info() themes.Info {
	return themes.Info{
		ID: "positional",
		Types: []themes.Type{
			themes.Outpost, themes.WeakSquare, themes.WeakComplex,
			themes.BishopPair, themes.BadBishop,
		},
		Category: themes.Positional,
		MinTier:  criticality.Standard,
		Priority: 40,
	}
}

func (d *Positional) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	var out []themes.Instance
	for _, c := range colors {
		out = append(out, d.outposts(snap, c)...)
		out = append(out, d.weaknesses(snap, c)...)
		out = append(out, d.bishops(snap, c)...)
	}
	for i := range out {
		out[i].Ply = ply
		out[i].Category = themes.Positional
	}
	return out, nil
}

// outposts finds c's knights and bishops on advanced squares protected by a
// pawn and out of reach of enemy pawns.
func (d *Positional) outposts(snap *board.Snapshot, c board.Color) []themes.Instance {
	var out []themes.Instance
	for _, sq := range snap.Pieces(c) {
		p := snap.At(sq)
		if p.Type != board.Knight && p.Type != board.Bishop {
			continue
		}
		rank := sq.RelativeRank(c)
		if rank < 3 || rank > 5 {
			continue
		}
		if !pawnProtected(snap, sq, c) || pawnAttackable(snap, sq, c) {
			continue
		}
		sev := themes.Minor
		if p.Type == board.Knight {
			sev = themes.Moderate
			if rank == 5 {
				sev = themes.Significant
			}
		}
		out = append(out, themes.Instance{
			Type:        themes.Outpost,
			Beneficiary: c,
			Primary:     sq,
			Severity:    sev,
			Confidence:  0.8,
			Pieces:      []string{describe(snap, sq)},
			Explanation: fmt.Sprintf("%s sits on an outpost", describe(snap, sq)),
		})
	}
	return out
}

// weaknesses finds holes in c's camp that the enemy already eyes. Three or
// more on one square color form a complex.
func (d *Positional) weaknesses(snap *board.Snapshot, c board.Color) []themes.Instance {
	enemy := c.Other()
	byShade := map[bool][]board.Square{}
	for f := 1; f <= 6; f++ {
		for _, rel := range []int{2, 3} {
			r := rel
			if c == board.Black {
				r = 7 - rel
			}
			sq := board.SquareAt(f, r)
			if p := snap.At(sq); p.Type == board.Pawn && p.Color == c {
				continue
			}
			if pawnCoverable(snap, sq, c) || !snap.IsAttacked(sq, enemy) {
				continue
			}
			byShade[sq.Light()] = append(byShade[sq.Light()], sq)
		}
	}

	var out []themes.Instance
	for _, light := range []bool{true, false} {
		holes := byShade[light]
		shade := "dark"
		if light {
			shade = "light"
		}
		if len(holes) >= weakComplexMin {
			sev := themes.Moderate
			if len(holes) >= 5 {
				sev = themes.Significant
			}
			out = append(out, themes.Instance{
				Type:        themes.WeakComplex,
				Beneficiary: enemy,
				Primary:     holes[0],
				Secondary:   holes[1:],
				Severity:    sev,
				Confidence:  0.7,
				Explanation: fmt.Sprintf("%s has a weak %s-square complex", c, shade),
				Detail:      fmt.Sprintf("%d %s squares can no longer be covered by pawns", len(holes), shade),
			})
			continue
		}
		for _, sq := range holes {
			out = append(out, themes.Instance{
				Type:        themes.WeakSquare,
				Beneficiary: enemy,
				Primary:     sq,
				Severity:    themes.Minor,
				Confidence:  0.6,
				Explanation: fmt.Sprintf("%s is a weak square for %s", sq, c),
			})
		}
	}
	return out
}

func (d *Positional) bishops(snap *board.Snapshot, c board.Color) []themes.Instance {
	var out []themes.Instance
	own := snap.PiecesOf(c, board.Bishop)

	if hasPair(own) && !hasPair(snap.PiecesOf(c.Other(), board.Bishop)) {
		sev := themes.Minor
		if snap.Material().Phase() == fen.Endgame {
			sev = themes.Moderate
		}
		out = append(out, themes.Instance{
			Type:        themes.BishopPair,
			Beneficiary: c,
			Primary:     own[0],
			Secondary:   own[1:],
			Severity:    sev,
			Confidence:  0.9,
			Explanation: fmt.Sprintf("%s has the bishop pair", c),
		})
	}

	pawns := snap.PiecesOf(c, board.Pawn)
	for _, b := range own {
		same := 0
		for _, p := range pawns {
			if p.Light() == b.Light() {
				same++
			}
		}
		if same < 3 || same*5 < len(pawns)*3 {
			continue
		}
		out = append(out, themes.Instance{
			Type:        themes.BadBishop,
			Beneficiary: c.Other(),
			Primary:     b,
			Severity:    themes.Moderate,
			Confidence:  0.7,
			Pieces:      []string{describe(snap, b)},
			Explanation: fmt.Sprintf("%s is hemmed in by its own pawns", describe(snap, b)),
			Detail:      fmt.Sprintf("%d of %d pawns stand on its color", same, len(pawns)),
		})
	}
	return out
}

func hasPair(bishops []board.Square) bool {
	light, dark := false, false
	for _, b := range bishops {
		if b.Light() {
			light = true
		} else {
			dark = true
		}
	}
	return light && dark
}

// pawnProtected reports whether a c pawn defends sq.
func pawnProtected(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, a := range snap.AttackersOf(sq, c) {
		if snap.At(a).Type == board.Pawn {
			return true
		}
	}
	return false
}

// pawnAttackable reports whether an enemy pawn on an adjacent file stands
// ahead of sq from c's point of view, so it could advance to attack it.
func pawnAttackable(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, e := range snap.PiecesOf(c.Other(), board.Pawn) {
		df := e.File() - sq.File()
		if (df == 1 || df == -1) && e.RelativeRank(c) > sq.RelativeRank(c) {
			return true
		}
	}
	return false
}

// pawnCoverable reports whether a c pawn on an adjacent file is still behind
// sq and could advance to defend it.
func pawnCoverable(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, p := range snap.PiecesOf(c, board.Pawn) {
		df := p.File() - sq.File()
		if (df == 1 || df == -1) && p.RelativeRank(c) < sq.RelativeRank(c) {
			return true
		}
	}
	return false
}
