// Package artifact caches per-position analysis results.
//
// The cache is advisory: every reader must behave correctly on a miss, and
// any decode error or version mismatch is reported as a miss.
package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/themes"
)

// Artifact is the analysis computed for one position at one depth.
type Artifact struct {
	PositionKey     string              `json:"positionKey"`
	Depth           int                 `json:"depth"`
	Lines           []engine.Line       `json:"lines"`
	Themes          []themes.Instance   `json:"themes,omitempty"`
	Criticality     *criticality.Result `json:"criticality,omitempty"`
	Tier            criticality.Tier    `json:"tier"`
	Predictions     []engine.Prediction `json:"predictions,omitempty"`
	ProviderVersion string              `json:"providerVersion"`
	ComputedAt      time.Time           `json:"computedAt"`
}

// Key identifies a cache request. A request at Depth is satisfied by any
// entry computed at that depth or deeper by the same provider version.
type Key struct {
	Position string
	Depth    int
	Version  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d/%s", k.Position, k.Depth, k.Version)
}

// Slot is the storage identity shared by every depth of one position.
func (k Key) Slot() string {
	return k.Version + "\x00" + k.Position
}

// Key returns the key the artifact was computed for.
func (a *Artifact) Key() Key {
	return Key{Position: a.PositionKey, Depth: a.Depth, Version: a.ProviderVersion}
}

// Satisfies reports whether a can answer a request for k.
func (a *Artifact) Satisfies(k Key) bool {
	return a != nil &&
		a.PositionKey == k.Position &&
		a.ProviderVersion == k.Version &&
		a.Depth >= k.Depth
}

// Clone returns a deep copy.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Lines = engine.CloneLines(a.Lines)
	c.Themes = themes.CloneInstances(a.Themes)
	if a.Criticality != nil {
		r := *a.Criticality
		c.Criticality = &r
	}
	if a.Predictions != nil {
		c.Predictions = append([]engine.Prediction(nil), a.Predictions...)
	}
	return &c
}

// Cache stores artifacts. Implementations must be safe for concurrent use.
// Get returns a private copy; callers may modify it freely.
type Cache interface {
	// Get returns the artifact satisfying key, or false on a miss.
	Get(ctx context.Context, key Key) (*Artifact, bool)

	// Set stores an artifact. It never replaces a deeper entry for the same
	// position and version; among equal depths the last write wins.
	Set(ctx context.Context, a *Artifact)

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Strategy is the eviction policy under a memory cache. Keys are slots.
type Strategy interface {
	Get(key string) (*Artifact, bool)
	Peek(key string) (*Artifact, bool)
	// Add stores value and reports whether an entry was evicted to make room.
	Add(key string, value *Artifact) bool
	Values() []*Artifact
	Len() int
	Purge()
}

// Nop is a cache that stores nothing.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(context.Context, Key) (*Artifact, bool) { return nil, false }
func (Nop) Set(context.Context, *Artifact)             {}
func (Nop) Stats() Stats                               { return Stats{} }
