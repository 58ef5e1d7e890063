// Package detectors implements the built-in theme detectors.
package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/themes"
)

// All returns every built-in detector.
func All() []themes.Detector {
	return []themes.Detector{
		NewPin(),
		NewFork(),
		NewHanging(),
		NewStructure(),
		NewPositional(),
		NewSpace(),
		NewDynamic(),
	}
}

// Default returns a registry holding every built-in detector.
func Default(opts ...themes.Option) *themes.Registry {
	return themes.NewRegistry(All(), opts...)
}

var colors = [...]board.Color{board.White, board.Black}

// severityFor grades a material amount.
func severityFor(value int) themes.Severity {
	switch {
	case value >= 900:
		return themes.Critical
	case value >= 500:
		return themes.Significant
	case value >= 300:
		return themes.Moderate
	default:
		return themes.Minor
	}
}

func bump(s themes.Severity) themes.Severity {
	return min(s+1, themes.Critical)
}

func describe(snap *board.Snapshot, sq board.Square) string {
	return fmt.Sprintf("%s %s", snap.At(sq), sq)
}

func describeAll(snap *board.Snapshot, squares []board.Square) []string {
	out := make([]string, 0, len(squares))
	for _, sq := range squares {
		out = append(out, describe(snap, sq))
	}
	return out
}

// defenders returns the pieces of the owner of sq that protect it.
func defenders(snap *board.Snapshot, sq board.Square) []board.Square {
	return snap.AttackersOf(sq, snap.At(sq).Color)
}

// cheapest returns the lowest piece value among squares, or 0.
func cheapest(snap *board.Snapshot, squares []board.Square) int {
	best := 0
	for _, sq := range squares {
		v := snap.At(sq).Value()
		if best == 0 || v < best {
			best = v
		}
	}
	return best
}

// exposed reports whether the piece on sq can be won: it is attacked and
// either undefended or attacked by something cheaper.
func exposed(snap *board.Snapshot, sq board.Square) bool {
	p := snap.At(sq)
	attackers := snap.AttackersOf(sq, p.Color.Other())
	if len(attackers) == 0 {
		return false
	}
	if len(defenders(snap, sq)) == 0 {
		return true
	}
	return cheapest(snap, attackers) < p.Value()
}
