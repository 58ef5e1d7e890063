package graph

import (
	"strconv"
	"strings"

	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/rules"
)

// Node is one position in the graph.
//
// Identity fields are fixed at creation. Evaluation and criticality are
// written at most once; the first write wins.
type Node struct {
	Key      string
	FEN      string
	Move     rules.Move // incoming move on the creating edge; zero for the root
	Ply      int
	Depth    int // exploration depth from the root
	Priority float64
	Check    bool
	Terminal bool

	tier criticality.Tier

	lines     []engine.Line
	evaluated bool

	crit     criticality.Result
	critSet  bool
	children []*Edge
	parents  []*Edge
}

func newNode(key, fenStr string) *Node {
	return &Node{Key: key, FEN: fenStr}
}

// IsRoot reports whether the node has no incoming edges.
func (n *Node) IsRoot() bool {
	return len(n.parents) == 0
}

// Children returns the outgoing edges in creation order.
func (n *Node) Children() []*Edge {
	return n.children
}

// Parents returns the incoming edges. The first is the creating edge.
func (n *Node) Parents() []*Edge {
	return n.parents
}

// Principal returns the principal child edge, or nil.
func (n *Node) Principal() *Edge {
	for _, e := range n.children {
		if e.Principal {
			return e
		}
	}
	return nil
}

// SetEvaluation records the evaluation lines. It returns false and leaves
// the node unchanged if an evaluation was already recorded.
func (n *Node) SetEvaluation(lines []engine.Line) bool {
	if n.evaluated {
		return false
	}
	n.lines = lines
	n.evaluated = true
	return true
}

// Evaluation returns the recorded evaluation lines.
func (n *Node) Evaluation() ([]engine.Line, bool) {
	return n.lines, n.evaluated
}

// SetCriticality records the criticality result, first write wins.
func (n *Node) SetCriticality(r criticality.Result) bool {
	if n.critSet {
		return false
	}
	n.crit = r
	n.critSet = true
	n.tier = criticality.Promote(n.tier, r.Tier)
	return true
}

// Criticality returns the recorded criticality result.
func (n *Node) Criticality() (criticality.Result, bool) {
	return n.crit, n.critSet
}

// Tier returns the analysis tier assigned to the node.
func (n *Node) Tier() criticality.Tier {
	return n.tier
}

// PromoteTier raises the node's tier. Lower tiers are ignored.
// It reports whether the tier changed.
func (n *Node) PromoteTier(t criticality.Tier) bool {
	next := criticality.Promote(n.tier, t)
	if next == n.tier {
		return false
	}
	n.tier = next
	return true
}

func (n *Node) edge(uci string) *Edge {
	for _, e := range n.children {
		if e.Move.UCI == uci {
			return e
		}
	}
	return nil
}

// orderedChildren returns the principal edge first, then the rest in
// creation order.
func (n *Node) orderedChildren() []*Edge {
	out := make([]*Edge, 0, len(n.children))
	for _, e := range n.children {
		if e.Principal {
			out = append(out, e)
		}
	}
	for _, e := range n.children {
		if !e.Principal {
			out = append(out, e)
		}
	}
	return out
}

func fullmove(fenStr string) int {
	parts := strings.Fields(fenStr)
	if len(parts) < 6 {
		return 1
	}
	n, err := strconv.Atoi(parts[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
