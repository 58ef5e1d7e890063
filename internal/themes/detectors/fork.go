package detectors

import (
	"fmt"
	"slices"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// Fork minimums: any fork of the king must win at least a pawn, other forks
// at least a minor piece.
const (
	forkMinWithKing    = 100
	forkMinWithoutKing = 300
)

// Fork finds a piece attacking two or more enemy pieces at once. Only forks
// facing the side to move are reported.
type Fork struct{}

var _ themes.Detector = (*Fork)(nil)

// NewFork creates a fork detector.
func NewFork() *Fork { return &Fork{} }

func (d *Fork) Info() themes.Info {
	return themes.Info{
		ID:       "fork",
		Types:    []themes.Type{themes.Fork},
		Category: themes.Tactical,
		MinTier:  criticality.Shallow,
		Priority: 100,
	}
}

func (d *Fork) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	forker := snap.Turn.Other()

	var out []themes.Instance
	for _, from := range snap.Pieces(forker) {
		inst, ok := d.at(snap, from)
		if !ok {
			continue
		}
		inst.Ply = ply
		out = append(out, inst)
	}
	return out, nil
}

func (d *Fork) at(snap *board.Snapshot, from board.Square) (themes.Instance, bool) {
	piece := snap.At(from)

	var (
		targets []board.Square
		values  []int
		king    bool
	)
	for _, sq := range snap.Attacks(from) {
		p := snap.At(sq)
		if p.Empty() || p.Color == piece.Color {
			continue
		}
		switch {
		case p.Type == board.King:
			king = true
		case p.Value() > piece.Value() || len(defenders(snap, sq)) == 0:
			values = append(values, p.Value())
		default:
			continue
		}
		targets = append(targets, sq)
	}
	if len(targets) < 2 {
		return themes.Instance{}, false
	}

	slices.Sort(values)
	slices.Reverse(values)
	var stake, threshold int
	if king {
		stake, threshold = values[0], forkMinWithKing
	} else {
		stake, threshold = values[1], forkMinWithoutKing
	}
	if stake < threshold {
		return themes.Instance{}, false
	}
	if piece.Type != board.King && exposed(snap, from) && piece.Value() >= stake {
		return themes.Instance{}, false
	}

	sev := severityFor(stake)
	if king {
		sev = bump(sev)
	}
	return themes.Instance{
		Type:            themes.Fork,
		Category:        themes.Tactical,
		Beneficiary:     piece.Color,
		Primary:         from,
		Secondary:       targets,
		Severity:        sev,
		Confidence:      0.85,
		Pieces:          describeAll(snap, targets),
		MaterialAtStake: stake,
		Explanation:     fmt.Sprintf("%s forks %d pieces", describe(snap, from), len(targets)),
		Detail:          fmt.Sprintf("at least %d centipawns are at stake", stake),
	}, true
}
