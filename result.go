package lookahead

import (
	"time"

	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/explore"
	"github.com/discochess/lookahead/internal/graph"
	"github.com/discochess/lookahead/internal/intent"
	"github.com/discochess/lookahead/internal/rules"
	"github.com/discochess/lookahead/internal/themes"
)

// Request describes one analysis.
type Request struct {
	// FEN is the position to explore from.
	FEN string

	// PlayedMove is the move actually played from FEN, in SAN or UCI.
	// It is always explored and, when Classification marks it as an error,
	// always yields a mandatory intent.
	PlayedMove string

	// Classification is the quality label of PlayedMove.
	Classification intent.Classification

	// Rating enables human-move prediction at this rating. Zero keeps the
	// analyzer's default.
	Rating int

	// MaxNodes, MaxDepth and Budget override the analyzer's limits when
	// non-zero.
	MaxNodes int
	MaxDepth int
	Budget   time.Duration
}

// limits returns the explorer limits for the request, or nil when the
// defaults apply unchanged.
func (r Request) limits(def explore.Config) (*explore.Config, error) {
	if r.Rating == 0 && r.MaxNodes == 0 && r.MaxDepth == 0 && r.Budget == 0 {
		return nil, nil
	}
	cfg := def
	if r.Rating != 0 {
		cfg.PredictionRating = r.Rating
	}
	if r.MaxNodes != 0 {
		cfg.MaxNodes = r.MaxNodes
	}
	if r.MaxDepth != 0 {
		cfg.MaxDepth = r.MaxDepth
	}
	if r.Budget != 0 {
		cfg.Budget = r.Budget
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Result is the outcome of one analysis.
type Result struct {
	// RunID is set when the run was recorded.
	RunID string `json:"runId,omitempty"`

	RootFEN        string                `json:"rootFen"`
	RootKey        string                `json:"rootKey"`
	RootEval       *engine.Score         `json:"rootEval,omitempty"`
	Played         *rules.Move           `json:"played,omitempty"`
	Classification intent.Classification `json:"classification,omitempty"`
	RootThemes     []themes.Instance     `json:"rootThemes"`
	RootSummary    themes.Summary        `json:"rootSummary"`

	// Intents are ordered by priority, highest first.
	Intents []intent.Intent `json:"intents"`
	// Nodes are in the order they were explored.
	Nodes      []NodeReport   `json:"nodes"`
	Variations [][]rules.Move `json:"variations"`

	NodesExplored    int                    `json:"nodesExplored"`
	NodesSkipped     int                    `json:"nodesSkipped"`
	CacheHits        int                    `json:"cacheHits"`
	CandidatesPruned int                    `json:"candidatesPruned"`
	MaxDepthReached  int                    `json:"maxDepthReached"`
	StoppingReason   explore.StoppingReason `json:"stoppingReason"`
	State            explore.State          `json:"state"`
	Elapsed          time.Duration          `json:"elapsed"`
	ProviderVersion  string                 `json:"providerVersion"`

	// Criticality summarizes the criticality scores of the explored nodes.
	Criticality Distribution `json:"criticality"`
	// Tiers counts explored nodes per final analysis tier.
	Tiers map[criticality.Tier]int `json:"tiers"`

	Warnings []string `json:"warnings,omitempty"`

	// Graph is the explored position graph.
	Graph *graph.Graph `json:"-"`
}

// NodeReport describes one explored node.
type NodeReport struct {
	Key           string             `json:"key"`
	FEN           string             `json:"fen"`
	Parent        string             `json:"parent"`
	Move          rules.Move         `json:"move"`
	Ply           int                `json:"ply"`
	Depth         int                `json:"depth"`
	Played        bool               `json:"played,omitempty"`
	Transposition bool               `json:"transposition,omitempty"`
	CacheHit      bool               `json:"cacheHit,omitempty"`
	Degraded      bool               `json:"degraded,omitempty"`
	Priority      float64            `json:"priority"`
	Eval          *engine.Score      `json:"eval,omitempty"`
	Lines         []engine.Line      `json:"lines,omitempty"`
	Tier          criticality.Tier   `json:"tier"`
	Criticality   criticality.Result `json:"criticality"`
	Themes        []themes.Instance  `json:"themes,omitempty"`
	Deltas        []themes.Delta     `json:"deltas,omitempty"`
	Summary       themes.Summary     `json:"summary"`
}

func newNodeReport(ev explore.NodeEvent) NodeReport {
	n := NodeReport{
		Key:           ev.Node.Key,
		FEN:           ev.Node.FEN,
		Parent:        ev.Parent,
		Move:          ev.Move,
		Ply:           ev.Node.Ply,
		Depth:         ev.Node.Depth,
		Played:        ev.Played,
		Transposition: ev.Transposition,
		CacheHit:      ev.CacheHit,
		Degraded:      ev.Degraded,
		Priority:      ev.Priority,
		Lines:         ev.Lines,
		Tier:          ev.Tier,
		Criticality:   ev.Criticality,
		Themes:        ev.Themes,
		Deltas:        ev.Deltas,
		Summary:       themes.Summarize(ev.Themes, ev.Deltas),
	}
	if len(ev.Lines) > 0 {
		s := ev.Lines[0].Score
		n.Eval = &s
	}
	return n
}

// describeNodes summarizes criticality and counts tiers over nodes.
func describeNodes(nodes []NodeReport) (Distribution, map[criticality.Tier]int) {
	scores := make([]float64, 0, len(nodes))
	tiers := make(map[criticality.Tier]int)
	for _, n := range nodes {
		scores = append(scores, n.Criticality.Score)
		tiers[n.Tier]++
	}
	return Describe(scores), tiers
}
