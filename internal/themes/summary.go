package themes

import "github.com/discochess/lookahead/internal/board"

// Summary is the per-position theme digest handed to narration.
type Summary struct {
	ByCategory      map[Category][]Instance    `json:"byCategory"`
	ByBeneficiary   map[board.Color][]Instance `json:"byBeneficiary"`
	Critical        []Instance                 `json:"critical,omitempty"`
	Emerged         []Instance                 `json:"emerged,omitempty"`
	Resolved        []Instance                 `json:"resolved,omitempty"`
	MaterialAtStake int                        `json:"materialAtStake"`
}

// Summarize groups active themes and picks out the lifecycle subsets.
func Summarize(active []Instance, deltas []Delta) Summary {
	s := Summary{
		ByCategory:    make(map[Category][]Instance),
		ByBeneficiary: make(map[board.Color][]Instance),
	}
	for _, t := range active {
		s.ByCategory[t.Category] = append(s.ByCategory[t.Category], t)
		s.ByBeneficiary[t.Beneficiary] = append(s.ByBeneficiary[t.Beneficiary], t)
		if t.Severity == Critical {
			s.Critical = append(s.Critical, t)
		}
		s.MaterialAtStake += t.MaterialAtStake
	}
	for _, d := range deltas {
		switch d.Transition {
		case Emerged:
			s.Emerged = append(s.Emerged, d.Theme)
		case Resolved:
			s.Resolved = append(s.Resolved, d.Theme)
		}
	}
	return s
}

// Count returns the number of active themes in category c.
func (s Summary) Count(c Category) int {
	return len(s.ByCategory[c])
}
