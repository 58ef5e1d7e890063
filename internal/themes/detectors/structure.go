package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// Structure finds isolated, doubled and passed pawns.
type Structure struct{}

var _ themes.Detector = (*Structure)(nil)

// NewStructure creates a pawn structure detector.
func NewStructure() *Structure { return &Structure{} }

func (d *Structure) Info() themes.Info {
	return themes.Info{
		ID:       "structure",
		Types:    []themes.Type{themes.IsolatedPawn, themes.DoubledPawns, themes.PassedPawn},
		Category: themes.Structural,
		MinTier:  criticality.Shallow,
		Priority: 50,
	}
}

func (d *Structure) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	var out []themes.Instance
	for _, c := range colors {
		pawns := snap.PiecesOf(c, board.Pawn)
		byFile := make(map[int][]board.Square)
		for _, sq := range pawns {
			byFile[sq.File()] = append(byFile[sq.File()], sq)
		}

		for _, sq := range pawns {
			if isolated(snap, sq, c) {
				out = append(out, themes.Instance{
					Type:        themes.IsolatedPawn,
					Category:    themes.Structural,
					Beneficiary: c.Other(),
					Primary:     sq,
					Severity:    themes.Minor,
					Confidence:  1,
					Ply:         ply,
					Explanation: fmt.Sprintf("%s pawn on %s is isolated", c, sq),
				})
			}
			if passed(snap, sq, c) {
				out = append(out, themes.Instance{
					Type:            themes.PassedPawn,
					Category:        themes.Structural,
					Beneficiary:     c,
					Primary:         sq,
					Severity:        passerSeverity(sq.RelativeRank(c)),
					Confidence:      1,
					Ply:             ply,
					MaterialAtStake: passerStake(sq.RelativeRank(c)),
					Explanation:     fmt.Sprintf("%s has a passed pawn on %s", c, sq),
				})
			}
		}

		for f := 0; f < 8; f++ {
			stack := byFile[f]
			if len(stack) < 2 {
				continue
			}
			front := stack[0]
			for _, sq := range stack[1:] {
				if sq.RelativeRank(c) > front.RelativeRank(c) {
					front = sq
				}
			}
			var rest []board.Square
			for _, sq := range stack {
				if sq != front {
					rest = append(rest, sq)
				}
			}
			sev := themes.Minor
			if len(stack) > 2 {
				sev = themes.Moderate
			}
			out = append(out, themes.Instance{
				Type:        themes.DoubledPawns,
				Category:    themes.Structural,
				Beneficiary: c.Other(),
				Primary:     front,
				Secondary:   rest,
				Severity:    sev,
				Confidence:  1,
				Ply:         ply,
				Explanation: fmt.Sprintf("%s has %d pawns on the %c-file", c, len(stack), 'a'+f),
			})
		}
	}
	return out, nil
}

func isolated(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, f := range []int{sq.File() - 1, sq.File() + 1} {
		if f >= 0 && f <= 7 && snap.FileHasPawn(f, c) {
			return false
		}
	}
	return true
}

// passed reports whether no enemy pawn stands ahead of sq on its own or an
// adjacent file and no own pawn stands ahead of it on its file.
func passed(snap *board.Snapshot, sq board.Square, c board.Color) bool {
	for _, own := range snap.PiecesOf(c, board.Pawn) {
		if own.File() == sq.File() && own.RelativeRank(c) > sq.RelativeRank(c) {
			return false
		}
	}
	enemy := c.Other()
	for _, esq := range snap.PiecesOf(enemy, board.Pawn) {
		df := esq.File() - sq.File()
		if df < -1 || df > 1 {
			continue
		}
		if esq.RelativeRank(c) > sq.RelativeRank(c) {
			return false
		}
	}
	return true
}

func passerSeverity(rank int) themes.Severity {
	switch {
	case rank >= 6:
		return themes.Critical
	case rank == 5:
		return themes.Significant
	case rank == 4:
		return themes.Moderate
	default:
		return themes.Minor
	}
}

func passerStake(rank int) int {
	if rank >= 5 {
		return 300
	}
	return 0
}
