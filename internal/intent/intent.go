// Package intent turns explored nodes into comment intents: structured
// requests for a narration layer to explain a position or move.
package intent

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/rules"
	"github.com/discochess/lookahead/internal/stats"
	"github.com/discochess/lookahead/internal/themes"
)

// ErrUnknownClassification indicates an unrecognized move classification.
var ErrUnknownClassification = errors.New("intent: unknown classification")

// Classification is the quality label of a played move.
type Classification string

const (
	Best       Classification = "best"
	Excellent  Classification = "excellent"
	Good       Classification = "good"
	Book       Classification = "book"
	Inaccuracy Classification = "inaccuracy"
	Mistake    Classification = "mistake"
	Blunder    Classification = "blunder"
)

// ParseClassification parses a classification name. The empty string is
// a valid "unclassified" value.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "", Best, Excellent, Good, Book, Inaccuracy, Mistake, Blunder:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClassification, s)
}

// IsError reports whether c flags the move as an error.
func (c Classification) IsError() bool {
	return c == Inaccuracy || c == Mistake || c == Blunder
}

// fallbackPriority scales the guaranteed intent of an error by severity.
func (c Classification) fallbackPriority() float64 {
	switch c {
	case Blunder:
		return 0.9
	case Mistake:
		return 0.7
	case Inaccuracy:
		return 0.5
	default:
		return 0
	}
}

// Type is what an intent asks the narrator to explain.
type Type string

const (
	TypeBlunder          Type = "blunder"
	TypeMistake          Type = "mistake"
	TypeInaccuracy       Type = "inaccuracy"
	TypeTactic           Type = "tactic"
	TypeCriticalMoment   Type = "critical_moment"
	TypeThemeEmerged     Type = "theme_emerged"
	TypeThemeEscalated   Type = "theme_escalated"
	TypeThemeTransformed Type = "theme_transformed"
	TypeThemeResolved    Type = "theme_resolved"
	TypeAlternative      Type = "alternative"
	TypePositional       Type = "positional"
)

// typeFor maps an error classification to its intent type.
func typeFor(c Classification) Type {
	switch c {
	case Blunder:
		return TypeBlunder
	case Mistake:
		return TypeMistake
	default:
		return TypeInaccuracy
	}
}

// Length is the suggested comment length.
type Length string

const (
	Brief    Length = "brief"
	Standard Length = "standard"
	Detailed Length = "detailed"
)

// IdeaHardToFind marks a best move humans rarely find.
const IdeaHardToFind = "hard_to_find"

// Content is what the comment is about.
type Content struct {
	Move            string      `json:"move"`
	UCI             string      `json:"uci,omitempty"`
	MoveNumber      int         `json:"moveNumber"`
	Side            board.Color `json:"side"`
	IdeaKeys        []string    `json:"ideaKeys,omitempty"`
	BestAlternative string      `json:"bestAlternative,omitempty"`
}

// Breakdown records the signals that produced an intent.
type Breakdown struct {
	Criticality         float64             `json:"criticality"`
	Factors             criticality.Factors `json:"factors"`
	ExplorationPriority float64             `json:"explorationPriority"`
	Deltas              int                 `json:"deltas"`
	Themes              int                 `json:"themes"`
	Classification      Classification      `json:"classification,omitempty"`
	Fallback            bool                `json:"fallback,omitempty"`
}

// Intent is one comment request.
type Intent struct {
	Type        Type      `json:"type"`
	Ply         int       `json:"ply"`
	PositionKey string    `json:"positionKey,omitempty"`
	Priority    float64   `json:"priority"`
	Mandatory   bool      `json:"mandatory"`
	Length      Length    `json:"length"`
	Content     Content   `json:"content"`
	Breakdown   Breakdown `json:"breakdown"`
}

// NodeContext is everything the generator looks at for one node.
type NodeContext struct {
	PositionKey string
	// Ply is the ply index of the position after Move.
	Ply            int
	Move           rules.Move
	Side           board.Color
	Themes         []themes.Instance
	Deltas         []themes.Delta
	Criticality    criticality.Result
	Priority       float64
	Played         bool
	Classification Classification
	// BestAlternative is the engine's preferred move from the parent, when
	// it differs from Move.
	BestAlternative string
	// BestProbability is the predicted chance a human finds the best move.
	// Nil when no prediction was made.
	BestProbability *float64
}

// PlayedMove identifies the move actually played from the root.
type PlayedMove struct {
	PositionKey     string
	Ply             int
	Move            rules.Move
	Side            board.Color
	Classification  Classification
	BestAlternative string
}

const (
	minScore    = 20.0
	minPriority = 30.0
)

// Option configures a Generator.
type Option interface {
	apply(*options)
}

type options struct {
	stats  stats.Collector
	logger *zap.Logger
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// Generator decides which nodes warrant a comment. It is stateless and safe
// for concurrent use.
type Generator struct {
	stats  stats.Collector
	logger *zap.Logger
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	o := options{stats: stats.NewNoop(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Generator{stats: o.stats, logger: o.logger.Named("intent")}
}

// ForNode returns an intent when the node has lifecycle deltas, a
// criticality score of at least 20, or an exploration priority of at
// least 30. A played error always yields one.
func (g *Generator) ForNode(nc NodeContext) (*Intent, bool) {
	playedError := nc.Played && nc.Classification.IsError()
	triggered := len(nc.Deltas) > 0 || nc.Criticality.Score >= minScore || nc.Priority >= minPriority
	if !triggered && !playedError {
		return nil, false
	}

	in := &Intent{
		Type:        typeOf(nc),
		Ply:         nc.Ply,
		PositionKey: nc.PositionKey,
		Priority:    priorityOf(nc),
		Mandatory:   playedError,
		Length:      lengthOf(nc),
		Content: Content{
			Move:            nc.Move.String(),
			UCI:             nc.Move.UCI,
			MoveNumber:      MoveNumber(nc.Ply),
			Side:            nc.Side,
			IdeaKeys:        ideaKeys(nc),
			BestAlternative: nc.BestAlternative,
		},
		Breakdown: Breakdown{
			Criticality:         nc.Criticality.Score,
			Factors:             nc.Criticality.Factors,
			ExplorationPriority: nc.Priority,
			Deltas:              len(nc.Deltas),
			Themes:              len(nc.Themes),
			Classification:      nc.Classification,
		},
	}
	if playedError {
		in.Priority = math.Max(in.Priority, nc.Classification.fallbackPriority())
	}

	g.stats.IncCounter(stats.MetricIntents, 1)
	g.logger.Debug("intent generated",
		zap.String("type", string(in.Type)),
		zap.Int("ply", in.Ply),
		zap.String("move", in.Content.Move),
		zap.Float64("priority", in.Priority),
	)
	return in, true
}

// EnsurePlayed guarantees an intent for a played error. An existing intent
// for the move is marked mandatory; otherwise a fallback built from the
// classification alone is appended. Moves not classified as errors leave
// intents unchanged.
func (g *Generator) EnsurePlayed(intents []Intent, pm PlayedMove) []Intent {
	if !pm.Classification.IsError() {
		return intents
	}
	for i := range intents {
		if intents[i].Ply == pm.Ply && intents[i].Content.UCI == pm.Move.UCI {
			intents[i].Mandatory = true
			intents[i].Type = typeFor(pm.Classification)
			intents[i].Priority = math.Max(intents[i].Priority, pm.Classification.fallbackPriority())
			return intents
		}
	}

	g.stats.IncCounter(stats.MetricFallbackIntents, 1)
	g.logger.Debug("fallback intent",
		zap.String("move", pm.Move.String()),
		zap.String("classification", string(pm.Classification)),
	)
	length := Standard
	if pm.Classification == Blunder {
		length = Detailed
	}
	return append(intents, Intent{
		Type:        typeFor(pm.Classification),
		Ply:         pm.Ply,
		PositionKey: pm.PositionKey,
		Priority:    pm.Classification.fallbackPriority(),
		Mandatory:   true,
		Length:      length,
		Content: Content{
			Move:            pm.Move.String(),
			UCI:             pm.Move.UCI,
			MoveNumber:      MoveNumber(pm.Ply),
			Side:            pm.Side,
			BestAlternative: pm.BestAlternative,
		},
		Breakdown: Breakdown{
			Classification: pm.Classification,
			Fallback:       true,
		},
	})
}

// Sort orders intents by priority, highest first, then by ply.
func Sort(intents []Intent) {
	slices.SortStableFunc(intents, func(a, b Intent) int {
		switch {
		case a.Priority > b.Priority:
			return -1
		case a.Priority < b.Priority:
			return 1
		}
		return a.Ply - b.Ply
	})
}

// MoveNumber is the full-move number of the move that produced ply.
func MoveNumber(ply int) int {
	if ply < 1 {
		return 1
	}
	return (ply-1)/2 + 1
}

func typeOf(nc NodeContext) Type {
	if nc.Played && nc.Classification.IsError() {
		return typeFor(nc.Classification)
	}

	var emerged, escalated, transformed, resolved bool
	for _, d := range nc.Deltas {
		switch d.Transition {
		case themes.Emerged:
			if d.Theme.Category == themes.Tactical && d.Theme.Severity >= themes.Significant {
				return TypeTactic
			}
			emerged = true
		case themes.Escalated:
			escalated = true
		case themes.Transformed:
			transformed = true
		case themes.Resolved:
			resolved = true
		}
	}

	switch {
	case nc.Criticality.Score >= criticality.FullThreshold:
		return TypeCriticalMoment
	case emerged:
		return TypeThemeEmerged
	case escalated:
		return TypeThemeEscalated
	case transformed:
		return TypeThemeTransformed
	case resolved:
		return TypeThemeResolved
	case !nc.Played:
		return TypeAlternative
	default:
		return TypePositional
	}
}

// priorityOf blends criticality, exploration priority and lifecycle
// activity into [0, 1].
func priorityOf(nc NodeContext) float64 {
	p := 0.5*nc.Criticality.Score/100 +
		0.3*math.Min(1, nc.Priority/100) +
		0.2*math.Min(1, float64(len(nc.Deltas))/3)
	return math.Max(0, math.Min(1, p))
}

func lengthOf(nc NodeContext) Length {
	for _, d := range nc.Deltas {
		if d.Transition != themes.Resolved && d.Theme.Severity == themes.Critical {
			return Detailed
		}
	}
	switch {
	case nc.Criticality.Score >= criticality.FullThreshold:
		return Detailed
	case nc.Criticality.Score >= criticality.StandardThreshold || (nc.Played && nc.Classification.IsError()):
		return Standard
	default:
		return Brief
	}
}

// ideaKeys lists the theme types that changed at the node, in delta order,
// plus hard_to_find when the best move is rarely found by humans.
func ideaKeys(nc NodeContext) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, d := range nc.Deltas {
		if d.Transition == themes.Persisting {
			continue
		}
		k := string(d.Theme.Type)
		if d.Transition == themes.Resolved {
			k = "resolved_" + k
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if nc.BestProbability != nil && *nc.BestProbability < 0.1 {
		keys = append(keys, IdeaHardToFind)
	}
	return keys
}
