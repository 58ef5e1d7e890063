package explore

import (
	"errors"
	"fmt"
	"time"

	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
)

// ErrInvalidBudget indicates exploration limits that cannot be honored.
var ErrInvalidBudget = errors.New("explore: invalid budget")

// TierDepths maps analysis tiers to evaluation depths.
type TierDepths struct {
	Shallow  int `yaml:"shallow" json:"shallow" validate:"min=1"`
	Standard int `yaml:"standard" json:"standard" validate:"min=1"`
	Full     int `yaml:"full" json:"full" validate:"min=1"`
}

// For returns the depth for tier t.
func (d TierDepths) For(t criticality.Tier) int {
	switch t {
	case criticality.Full:
		return d.Full
	case criticality.Standard:
		return d.Standard
	default:
		return d.Shallow
	}
}

// Config bounds one exploration.
type Config struct {
	// MaxNodes caps the number of nodes explored.
	MaxNodes int
	// MaxDepth caps the exploration depth below the root.
	MaxDepth int
	// Budget is the soft wall-clock limit. An evaluation already in flight
	// when it passes is allowed to finish.
	Budget time.Duration
	// LinesPerNode is the number of candidate lines requested per node.
	LinesPerNode int
	// TierDepths are the evaluation depths per analysis tier.
	TierDepths TierDepths
	// DepthDecay discounts child priority per level below the root.
	DepthDecay float64
	// PredictionRating enables the human-move predictor at this rating.
	// Zero disables it.
	PredictionRating int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxNodes:     50,
		MaxDepth:     10,
		Budget:       5 * time.Second,
		LinesPerNode: 3,
		TierDepths: TierDepths{
			Shallow:  12,
			Standard: 16,
			Full:     engine.DefaultDepth,
		},
		DepthDecay: 0.85,
	}
}

// Validate checks the limits.
func (c Config) Validate() error {
	switch {
	case c.MaxNodes < 1:
		return fmt.Errorf("%w: maxNodes %d", ErrInvalidBudget, c.MaxNodes)
	case c.MaxDepth < 1:
		return fmt.Errorf("%w: maxDepth %d", ErrInvalidBudget, c.MaxDepth)
	case c.Budget <= 0:
		return fmt.Errorf("%w: budget %s", ErrInvalidBudget, c.Budget)
	case c.LinesPerNode < engine.MinLines || c.LinesPerNode > engine.MaxLines:
		return fmt.Errorf("%w: linesPerNode %d", ErrInvalidBudget, c.LinesPerNode)
	case c.TierDepths.Shallow < 1 ||
		c.TierDepths.Standard < c.TierDepths.Shallow ||
		c.TierDepths.Full < c.TierDepths.Standard:
		return fmt.Errorf("%w: tier depths %+v", ErrInvalidBudget, c.TierDepths)
	case c.DepthDecay <= 0 || c.DepthDecay > 1:
		return fmt.Errorf("%w: depthDecay %v", ErrInvalidBudget, c.DepthDecay)
	}
	if c.PredictionRating != 0 {
		if err := engine.ValidateRating(c.PredictionRating); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
		}
	}
	return nil
}
