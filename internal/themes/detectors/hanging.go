package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// Hanging finds pieces of the side that just moved that the side to move
// can win by capture.
type Hanging struct{}

var _ themes.Detector = (*Hanging)(nil)

// NewHanging creates a hanging piece detector.
func NewHanging() *Hanging { return &Hanging{} }

func (d *Hanging) Info() themes.Info {
	return themes.Info{
		ID:       "hanging",
		Types:    []themes.Type{themes.HangingPiece},
		Category: themes.Tactical,
		MinTier:  criticality.Shallow,
		Priority: 90,
	}
}

func (d *Hanging) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	victim := snap.Turn.Other()

	var out []themes.Instance
	for _, sq := range snap.Pieces(victim) {
		p := snap.At(sq)
		if p.Type == board.King || !exposed(snap, sq) {
			continue
		}

		attackers := snap.AttackersOf(sq, snap.Turn)
		stake := p.Value()
		if len(defenders(snap, sq)) > 0 {
			stake -= cheapest(snap, attackers)
		}

		out = append(out, themes.Instance{
			Type:            themes.HangingPiece,
			Category:        themes.Tactical,
			Beneficiary:     snap.Turn,
			Primary:         sq,
			Secondary:       attackers,
			Severity:        severityFor(stake),
			Confidence:      0.9,
			Ply:             ply,
			Pieces:          []string{describe(snap, sq)},
			MaterialAtStake: stake,
			Explanation:     fmt.Sprintf("%s can be won", describe(snap, sq)),
			Detail:          fmt.Sprintf("attacked %d time(s), defended %d time(s)", len(attackers), len(defenders(snap, sq))),
		})
	}
	return out, nil
}
