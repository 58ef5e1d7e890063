package scripted

import (
	"slices"

	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/rules"
)

// MaterialGenerator scores every legal move by the material balance it
// leads to, mates first, best first for the side to move. It lets runs
// proceed without an engine, at the cost of seeing no further than one ply.
func MaterialGenerator(p rules.Provider) Generator {
	return func(fenStr string, n int) ([]engine.Line, error) {
		side, err := fen.SideToMove(fenStr)
		if err != nil {
			return nil, err
		}
		white := side == "w"

		moves, err := p.LegalMoves(fenStr)
		if err != nil {
			return nil, err
		}

		lines := make([]engine.Line, 0, len(moves))
		for _, m := range moves {
			applied, err := p.ApplyMove(fenStr, m.UCI)
			if err != nil {
				return nil, err
			}
			var score engine.Score
			switch {
			case applied.Checkmate && white:
				score = engine.MateIn(1)
			case applied.Checkmate:
				score = engine.MateIn(-1)
			case applied.Stalemate:
				score = engine.CPScore(0)
			default:
				mat, err := fen.ParseMaterial(applied.FEN)
				if err != nil {
					return nil, err
				}
				score = engine.CPScore(mat.Value(true) - mat.Value(false))
			}
			lines = append(lines, engine.Line{Move: m.UCI, Score: score, PV: []string{m.UCI}})
		}

		slices.SortStableFunc(lines, func(a, b engine.Line) int {
			d := a.Score.Centipawns() - b.Score.Centipawns()
			if white {
				return -d
			}
			return d
		})
		if n > 0 && len(lines) > n {
			lines = lines[:n]
		}
		return lines, nil
	}
}
