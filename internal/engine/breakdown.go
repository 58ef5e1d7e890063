package engine

import (
	"context"
	"errors"
)

// ErrNoBreakdown indicates the engine does not expose a classical
// evaluation breakdown. Engines that evaluate with a network only report
// no terms.
var ErrNoBreakdown = errors.New("engine: no classical evaluation breakdown")

// PhaseScore is a term's value in pawns for the middlegame and endgame.
type PhaseScore struct {
	MG float64 `json:"mg"`
	EG float64 `json:"eg"`
}

// TermScore is one evaluation term for each side and in total.
type TermScore struct {
	White PhaseScore `json:"white"`
	Black PhaseScore `json:"black"`
	Total PhaseScore `json:"total"`
}

// Breakdown is a classical static evaluation split into terms.
type Breakdown struct {
	Material   TermScore `json:"material"`
	Imbalance  TermScore `json:"imbalance"`
	Pawns      TermScore `json:"pawns"`
	Knights    TermScore `json:"knights"`
	Bishops    TermScore `json:"bishops"`
	Rooks      TermScore `json:"rooks"`
	Queens     TermScore `json:"queens"`
	Mobility   TermScore `json:"mobility"`
	KingSafety TermScore `json:"kingSafety"`
	Threats    TermScore `json:"threats"`
	Passed     TermScore `json:"passed"`
	Space      TermScore `json:"space"`
	Winnable   TermScore `json:"winnable"`
	Total      TermScore `json:"total"`
	// CP blends the total's middlegame and endgame values evenly, in
	// centipawns from White's perspective.
	CP int `json:"cp"`
}

// Term returns the named term. Names are lower case as the engine prints
// them, for example "king safety".
func (b *Breakdown) Term(name string) (*TermScore, bool) {
	switch name {
	case "material":
		return &b.Material, true
	case "imbalance":
		return &b.Imbalance, true
	case "pawns":
		return &b.Pawns, true
	case "knights":
		return &b.Knights, true
	case "bishops":
		return &b.Bishops, true
	case "rooks":
		return &b.Rooks, true
	case "queens":
		return &b.Queens, true
	case "mobility":
		return &b.Mobility, true
	case "king safety":
		return &b.KingSafety, true
	case "threats":
		return &b.Threats, true
	case "passed":
		return &b.Passed, true
	case "space":
		return &b.Space, true
	case "winnable":
		return &b.Winnable, true
	case "total":
		return &b.Total, true
	}
	return nil, false
}

// BreakdownProvider explains a position's static evaluation term by term.
type BreakdownProvider interface {
	Breakdown(ctx context.Context, fen string) (*Breakdown, error)
}
