package detectors

import (
	"fmt"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/themes"
)

// Phase gates, in plies.
const (
	kingInCenterBefore = 40
	developmentBefore  = 30
)

// King exposure thresholds.
const (
	exposureModerate    = 120
	exposureSignificant = 180
	exposureCritical    = 250
)

var homeMinors = map[board.Color][]string{
	board.White: {"b1", "c1", "f1", "g1"},
	board.Black: {"b8", "c8", "f8", "g8"},
}

// Dynamic finds king danger, open lines for heavy pieces and development
// leads.
type Dynamic struct{}

var _ themes.Detector = (*Dynamic)(nil)

// NewDynamic creates a dynamic detector.
func NewDynamic() *Dynamic { return &Dynamic{} }

func (d *Dynamic) Info() themes.Info {
	return themes.Info{
		ID: "dynamic",
		Types: []themes.Type{
			themes.KingSafety, themes.KingInCenter,
			themes.OpenFile, themes.HalfOpenFile, themes.Development,
		},
		Category: themes.Dynamic,
		MinTier:  criticality.Standard,
		Priority: 60,
	}
}

func (d *Dynamic) Detect(snap *board.Snapshot, ply int, _ criticality.Tier) ([]themes.Instance, error) {
	var out []themes.Instance
	for _, c := range colors {
		out = append(out, d.kingSafety(snap, c)...)
		if ply < kingInCenterBefore {
			out = append(out, d.kingInCenter(snap, c)...)
		}
		out = append(out, d.files(snap, c)...)
		if ply < developmentBefore {
			out = append(out, d.development(snap, c)...)
		}
	}
	for i := range out {
		out[i].Ply = ply
		out[i].Category = themes.Dynamic
	}
	return out, nil
}

func (d *Dynamic) kingSafety(snap *board.Snapshot, c board.Color) []themes.Instance {
	exposure := snap.KingExposure(c)
	if exposure < exposureModerate {
		return nil
	}
	sev := themes.Moderate
	switch {
	case exposure >= exposureCritical:
		sev = themes.Critical
	case exposure >= exposureSignificant:
		sev = themes.Significant
	}
	return []themes.Instance{{
		Type:        themes.KingSafety,
		Beneficiary: c.Other(),
		Primary:     snap.KingSquare(c),
		Severity:    sev,
		Confidence:  0.7,
		Explanation: fmt.Sprintf("the %s king is exposed", c),
		Detail:      fmt.Sprintf("exposure %d", exposure),
	}}
}

// kingInCenter flags a king stuck on the d or e file with no castling
// rights left while a central file lacks its own pawn.
func (d *Dynamic) kingInCenter(snap *board.Snapshot, c board.Color) []themes.Instance {
	k := snap.KingSquare(c)
	if k == board.NoSquare || k.File() < 3 || k.File() > 4 || k.RelativeRank(c) > 1 {
		return nil
	}
	if snap.CanCastle(c) {
		return nil
	}
	open := 0
	for f := 3; f <= 4; f++ {
		if !snap.FileHasPawn(f, c) {
			open++
		}
	}
	if open == 0 {
		return nil
	}
	sev := themes.Moderate
	if open == 2 {
		sev = themes.Significant
	}
	return []themes.Instance{{
		Type:        themes.KingInCenter,
		Beneficiary: c.Other(),
		Primary:     k,
		Severity:    sev,
		Confidence:  0.75,
		Explanation: fmt.Sprintf("the %s king is stuck in the center", c),
	}}
}

// files reports c's rooks and queens on open or half-open files.
func (d *Dynamic) files(snap *board.Snapshot, c board.Color) []themes.Instance {
	var out []themes.Instance
	seen := make(map[int]bool)
	for _, sq := range snap.Pieces(c) {
		p := snap.At(sq)
		if p.Type != board.Rook && p.Type != board.Queen {
			continue
		}
		f := sq.File()
		if seen[f] || snap.FileHasPawn(f, c) {
			continue
		}
		seen[f] = true

		inst := themes.Instance{
			Beneficiary: c,
			Primary:     sq,
			Confidence:  0.9,
			Pieces:      []string{describe(snap, sq)},
		}
		if snap.FileHasPawn(f, c.Other()) {
			inst.Type = themes.HalfOpenFile
			inst.Severity = themes.Minor
			inst.Explanation = fmt.Sprintf("%s presses on the half-open %c-file", describe(snap, sq), 'a'+f)
		} else {
			inst.Type = themes.OpenFile
			inst.Severity = themes.Moderate
			inst.Explanation = fmt.Sprintf("%s controls the open %c-file", describe(snap, sq), 'a'+f)
		}
		out = append(out, inst)
	}
	return out
}

func (d *Dynamic) development(snap *board.Snapshot, c board.Color) []themes.Instance {
	lead := undeveloped(snap, c.Other()) - undeveloped(snap, c)
	if lead < 2 {
		return nil
	}
	sev := themes.Moderate
	if lead >= 3 {
		sev = themes.Significant
	}
	return []themes.Instance{{
		Type:        themes.Development,
		Beneficiary: c,
		Primary:     board.NoSquare,
		Severity:    sev,
		Confidence:  0.8,
		Explanation: fmt.Sprintf("%s leads in development", c),
		Detail:      fmt.Sprintf("%d more minor pieces developed", lead),
	}}
}

func undeveloped(snap *board.Snapshot, c board.Color) int {
	n := 0
	for _, name := range homeMinors[c] {
		sq, _ := board.ParseSquare(name)
		p := snap.At(sq)
		if p.Color == c && (p.Type == board.Knight || p.Type == board.Bishop) {
			n++
		}
	}
	return n
}
