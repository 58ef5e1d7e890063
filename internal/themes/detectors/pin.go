package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// Pin finds pieces that cannot move off a line without exposing a more
// valuable piece behind them.
type Pin struct{}

var _ themes.Detector = (*Pin)(nil)

// NewPin creates a pin detector.
func NewPin() *Pin { return &Pin{} }

func (d *Pin) Info() themes.Info {
	return themes.Info{
		ID:       "pin",
		Types:    []themes.Type{themes.AbsolutePin, themes.RelativePin},
		Category: themes.Tactical,
		MinTier:  criticality.Shallow,
		Priority: 100,
	}
}

func (d *Pin) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	var out []themes.Instance
	for _, c := range colors {
		for _, from := range snap.Pieces(c) {
			attacker := snap.At(from)
			if !attacker.Type.IsSlider() {
				continue
			}
			for _, dir := range board.Directions(attacker.Type) {
				if inst, ok := d.along(snap, from, dir); ok {
					inst.Ply = ply
					out = append(out, inst)
				}
			}
		}
	}
	return out, nil
}

// along looks for attacker, enemy piece, enemy target on one ray.
func (d *Pin) along(snap *board.Snapshot, from board.Square, dir board.Direction) (themes.Instance, bool) {
	attacker := snap.At(from)
	enemy := attacker.Color.Other()

	pinned := board.NoSquare
	for _, sq := range board.Ray(from, dir) {
		p := snap.At(sq)
		if p.Empty() {
			continue
		}
		if p.Color != enemy {
			return themes.Instance{}, false
		}
		if pinned == board.NoSquare {
			if p.Type == board.King {
				return themes.Instance{}, false
			}
			pinned = sq
			continue
		}
		return d.classify(snap, from, pinned, sq)
	}
	return themes.Instance{}, false
}

func (d *Pin) classify(snap *board.Snapshot, from, pinned, target board.Square) (themes.Instance, bool) {
	attacker := snap.At(from)
	pp := snap.At(pinned)
	tp := snap.At(target)

	inst := themes.Instance{
		Category:    themes.Tactical,
		Beneficiary: attacker.Color,
		Primary:     pinned,
		Secondary:   []board.Square{from, target},
		Pieces:      describeAll(snap, []board.Square{from, pinned, target}),
	}

	switch {
	case tp.Type == board.King:
		inst.Type = themes.AbsolutePin
		inst.Confidence = 0.95
		inst.MaterialAtStake = pp.Value()
		inst.Severity = themes.Significant
		if pp.Value() >= 300 && exposed(snap, pinned) {
			inst.Severity = themes.Critical
		}
		inst.Explanation = fmt.Sprintf("%s is pinned to the king", describe(snap, pinned))
	case (tp.Type == board.Queen || tp.Type == board.Rook) && pp.Value() < tp.Value():
		inst.Type = themes.RelativePin
		inst.Confidence = 0.75
		inst.MaterialAtStake = tp.Value() - pp.Value()
		inst.Severity = themes.Moderate
		if tp.Type == board.Queen {
			inst.Severity = themes.Significant
		}
		inst.Explanation = fmt.Sprintf("%s is pinned to the %s", describe(snap, pinned), tp.Type)
	default:
		return themes.Instance{}, false
	}
	inst.Detail = fmt.Sprintf("%s on %s holds the line through %s to %s",
		attacker.Type, from, pinned, target)
	return inst, true
}
