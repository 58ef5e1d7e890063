// Package themes defines theme instances, their lifecycle deltas and the
// detector registry that produces them.
package themes

import (
	"fmt"
	"slices"

	"github.com/discochess/lookahead/internal/board"
)

// Category groups theme types.
type Category int

const (
	Tactical Category = iota
	Structural
	Positional
	Dynamic
)

var categoryNames = [...]string{"tactical", "structural", "positional", "dynamic"}

func (c Category) String() string {
	if c < Tactical || c > Dynamic {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	return parseName(categoryNames[:], b, (*int)(c), "category")
}

// Severity is an ordinal importance. Higher is more severe.
type Severity int

const (
	Minor Severity = iota
	Moderate
	Significant
	Critical
)

var severityNames = [...]string{"minor", "moderate", "significant", "critical"}

func (s Severity) String() string {
	if s < Minor || s > Critical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	return parseName(severityNames[:], b, (*int)(s), "severity")
}

// Type names a kind of theme.
type Type string

const (
	AbsolutePin    Type = "absolute_pin"
	RelativePin    Type = "relative_pin"
	Fork           Type = "fork"
	HangingPiece   Type = "hanging_piece"
	IsolatedPawn   Type = "isolated_pawn"
	DoubledPawns   Type = "doubled_pawns"
	PassedPawn     Type = "passed_pawn"
	Outpost        Type = "outpost"
	WeakSquare     Type = "weak_square"
	WeakComplex    Type = "weak_complex"
	BishopPair     Type = "bishop_pair"
	BadBishop      Type = "bad_bishop"
	SpaceAdvantage Type = "space_advantage"
	KingSafety     Type = "king_safety"
	KingInCenter   Type = "king_in_center"
	OpenFile       Type = "open_file"
	HalfOpenFile   Type = "half_open_file"
	Development    Type = "development_lead"
)

// families maps types whose character can change into one another.
var families = map[Type]string{
	AbsolutePin:  "pin",
	RelativePin:  "pin",
	WeakSquare:   "weakness",
	WeakComplex:  "weakness",
	OpenFile:     "file",
	HalfOpenFile: "file",
	KingSafety:   "king",
	KingInCenter: "king",
}

// Family returns the family of t. Types without a family are their own.
func (t Type) Family() string {
	if f, ok := families[t]; ok {
		return f
	}
	return string(t)
}

// Instance is one detected theme in one position. Instances are values and
// are never mutated after detection.
type Instance struct {
	Type            Type           `json:"type"`
	Category        Category       `json:"category"`
	Beneficiary     board.Color    `json:"beneficiary"`
	Primary         board.Square   `json:"primary"`
	Secondary       []board.Square `json:"secondary,omitempty"`
	Severity        Severity       `json:"severity"`
	Confidence      float64        `json:"confidence"`
	Explanation     string         `json:"explanation"`
	Detail          string         `json:"detail,omitempty"`
	Ply             int            `json:"ply"`
	Pieces          []string       `json:"pieces,omitempty"`
	MaterialAtStake int            `json:"materialAtStake,omitempty"`
}

// Key is the identity used to match instances across plies.
func (i Instance) Key() string {
	return fmt.Sprintf("%s|%s|%s", i.Type, i.Beneficiary, i.Primary)
}

// Clone returns a deep copy.
func (i Instance) Clone() Instance {
	i.Secondary = slices.Clone(i.Secondary)
	i.Pieces = slices.Clone(i.Pieces)
	return i
}

// Transition is a lifecycle change between two plies.
type Transition int

const (
	Emerged Transition = iota
	Persisting
	Escalated
	Resolved
	Transformed
)

var transitionNames = [...]string{"emerged", "persisting", "escalated", "resolved", "transformed"}

func (t Transition) String() string {
	if t < Emerged || t > Transformed {
		return fmt.Sprintf("transition(%d)", int(t))
	}
	return transitionNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Transition) UnmarshalText(b []byte) error {
	return parseName(transitionNames[:], b, (*int)(t), "transition")
}

func parseName(names []string, b []byte, dst *int, kind string) error {
	i := slices.Index(names, string(b))
	if i < 0 {
		return fmt.Errorf("themes: unknown %s %q", kind, b)
	}
	*dst = i
	return nil
}

// Delta is a theme with its lifecycle transition.
type Delta struct {
	Theme      Instance   `json:"theme"`
	Transition Transition `json:"transition"`
	// Previous is the severity at the previous ply, if the theme existed.
	Previous *Severity `json:"previous,omitempty"`
	// PreviousType is set for transformed themes.
	PreviousType Type   `json:"previousType,omitempty"`
	Change       string `json:"change"`
}

// Clone returns a deep copy.
func (d Delta) Clone() Delta {
	d.Theme = d.Theme.Clone()
	if d.Previous != nil {
		p := *d.Previous
		d.Previous = &p
	}
	return d
}

// CloneInstances deep-copies a slice of instances.
func CloneInstances(in []Instance) []Instance {
	if in == nil {
		return nil
	}
	out := make([]Instance, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// CloneDeltas deep-copies a slice of deltas.
func CloneDeltas(in []Delta) []Delta {
	if in == nil {
		return nil
	}
	out := make([]Delta, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

// Emerge wraps themes as emerged deltas, used when there is no history.
func Emerge(in []Instance) []Delta {
	out := make([]Delta, 0, len(in))
	for _, t := range in {
		out = append(out, Delta{
			Theme:      t,
			Transition: Emerged,
			Change:     fmt.Sprintf("%s appears", t.Type),
		})
	}
	return out
}
