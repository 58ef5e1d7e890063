package criticality

import (
	"fmt"
	"sync"
)

// Tier is an analysis depth level. Tiers are ordered: Shallow < Standard < Full.
type Tier int

const (
	Shallow Tier = iota
	Standard
	Full
)

var tierNames = [...]string{"shallow", "standard", "full"}

func (t Tier) String() string {
	if t < Shallow || t > Full {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if s == name {
			return Tier(i), nil
		}
	}
	return Shallow, fmt.Errorf("criticality: unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Tier thresholds on the [0, 100] score.
const (
	FullThreshold     = 70
	StandardThreshold = 40
)

// TierFor maps a score to its recommended tier.
func TierFor(score float64) Tier {
	switch {
	case score >= FullThreshold:
		return Full
	case score >= StandardThreshold:
		return Standard
	default:
		return Shallow
	}
}

// Promote returns the higher of two tiers. Tiers are never demoted.
func Promote(current, proposed Tier) Tier {
	if proposed > current {
		return proposed
	}
	return current
}

// TierBook records the tier assigned to each position key. Assignments
// only ever promote. A TierBook is safe for concurrent use.
type TierBook struct {
	mu    sync.Mutex
	tiers map[string]Tier
}

// NewTierBook creates an empty book.
func NewTierBook() *TierBook {
	return &TierBook{tiers: make(map[string]Tier)}
}

// Assign proposes a tier for key and returns the tier in effect afterwards
// and whether it changed.
func (b *TierBook) Assign(key string, proposed Tier) (Tier, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.tiers[key]
	if !ok {
		b.tiers[key] = proposed
		return proposed, true
	}
	next := Promote(current, proposed)
	b.tiers[key] = next
	return next, next != current
}

// Get returns the tier assigned to key.
func (b *TierBook) Get(key string) (Tier, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tiers[key]
	return t, ok
}

// Reset forgets every assignment.
func (b *TierBook) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tiers = make(map[string]Tier)
}
