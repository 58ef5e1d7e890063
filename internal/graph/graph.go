// Package graph implements the position graph explored by the analyzer.
//
// Nodes live in a flat arena keyed by normalized position key; edges refer
// to nodes by key. Positions reached by different move orders merge into a
// single node, so the graph is a DAG rather than a tree.
package graph

import (
	"errors"
	"fmt"

	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/rules"
)

var (
	// ErrNoRoot indicates an operation that requires a root was called first.
	ErrNoRoot = errors.New("graph: no root")

	// ErrRootExists indicates AddRoot was called twice.
	ErrRootExists = errors.New("graph: root already set")

	// ErrUnknownNode indicates a position key not present in the graph.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrUnknownEdge indicates a move that is not a child edge of the node.
	ErrUnknownEdge = errors.New("graph: unknown edge")
)

// Edge is a move from one node to another. Priority and CP are hints
// recorded by the explorer when the edge was a frontier candidate.
type Edge struct {
	Move      rules.Move
	From      string
	To        string
	Principal bool
	Priority  float64
	CP        *int
}

// Graph is the position graph. It is mutated only by a single goroutine
// (the explorer's control loop) and is not safe for concurrent writers.
type Graph struct {
	rules rules.Provider
	nodes map[string]*Node
	order []string
	root  string
}

// New creates an empty graph backed by the given rules provider.
func New(p rules.Provider) *Graph {
	return &Graph{
		rules: p,
		nodes: make(map[string]*Node),
	}
}

// AddRoot creates the root node from a FEN.
func (g *Graph) AddRoot(fenStr string) (*Node, error) {
	if g.root != "" {
		return nil, ErrRootExists
	}
	key, err := fen.Normalize(fenStr)
	if err != nil {
		return nil, fmt.Errorf("normalizing root: %w", err)
	}

	n := newNode(key, fenStr)
	n.Ply = plyOf(fenStr)
	g.insert(n)
	g.root = key
	return n, nil
}

// Root returns the root node.
func (g *Graph) Root() (*Node, bool) {
	if g.root == "" {
		return nil, false
	}
	return g.nodes[g.root], true
}

// Expand applies move at the node identified by parentKey. If the resulting
// position already exists anywhere in the graph the existing node is
// returned with created=false and the new edge is recorded as an additional
// parent (the transposition merge point).
func (g *Graph) Expand(parentKey, move string, priority float64) (n *Node, created bool, err error) {
	parent, ok := g.nodes[parentKey]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownNode, parentKey)
	}

	applied, err := g.rules.ApplyMove(parent.FEN, move)
	if err != nil {
		return nil, false, err
	}

	key, err := fen.Normalize(applied.FEN)
	if err != nil {
		return nil, false, fmt.Errorf("normalizing child: %w", err)
	}

	edge := &Edge{Move: applied.Move, From: parentKey, To: key}

	if existing, ok := g.nodes[key]; ok {
		// Repetitions back into an ancestor are not recorded as edges so the
		// graph stays acyclic.
		if parent.edge(applied.Move.UCI) == nil && !g.reaches(key, parentKey) {
			parent.children = append(parent.children, edge)
			existing.parents = append(existing.parents, edge)
		}
		return existing, false, nil
	}

	child := newNode(key, applied.FEN)
	child.Move = applied.Move
	child.Ply = parent.Ply + 1
	child.Depth = parent.Depth + 1
	child.Priority = priority
	child.Check = applied.Check
	child.Terminal = applied.Checkmate || applied.Stalemate
	child.parents = []*Edge{edge}
	parent.children = append(parent.children, edge)
	g.insert(child)
	return child, true, nil
}

// GoTo returns the node for a position key.
func (g *Graph) GoTo(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// SetPrincipal marks the child edge with the given UCI move as the principal
// line from the node. Any previously principal edge becomes an alternative.
func (g *Graph) SetPrincipal(parentKey, uci string) error {
	parent, ok := g.nodes[parentKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, parentKey)
	}
	target := parent.edge(uci)
	if target == nil {
		return fmt.Errorf("%w: %s from %s", ErrUnknownEdge, uci, parentKey)
	}
	for _, e := range parent.children {
		e.Principal = e == target
	}
	return nil
}

// Edge returns the child edge of parentKey played with uci.
func (g *Graph) Edge(parentKey, uci string) (*Edge, bool) {
	parent, ok := g.nodes[parentKey]
	if !ok {
		return nil, false
	}
	e := parent.edge(uci)
	return e, e != nil
}

// AllNodes returns every node in creation order.
func (g *Graph) AllNodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.nodes[k])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// PrimaryParent returns the edge used to render n linearly: the principal
// incoming edge if there is one, otherwise the edge that created n.
func (g *Graph) PrimaryParent(n *Node) *Edge {
	if len(n.parents) == 0 {
		return nil
	}
	for _, e := range n.parents {
		if e.Principal {
			return e
		}
	}
	return n.parents[0]
}

// PathTo returns the moves from the root to key following primary parents.
func (g *Graph) PathTo(key string) ([]rules.Move, error) {
	n, ok := g.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, key)
	}

	var rev []rules.Move
	seen := make(map[string]bool)
	for {
		if seen[n.Key] {
			return nil, fmt.Errorf("graph: cycle through %s", n.Key)
		}
		seen[n.Key] = true

		e := g.PrimaryParent(n)
		if e == nil {
			break
		}
		rev = append(rev, e.Move)
		n = g.nodes[e.From]
	}

	path := make([]rules.Move, len(rev))
	for i, m := range rev {
		path[len(rev)-1-i] = m
	}
	return path, nil
}

// Variations returns one move sequence per leaf of the rendered tree, where
// the rendered tree keeps each node under its primary parent only. The
// order follows node creation, principal children first.
func (g *Graph) Variations() [][]rules.Move {
	root, ok := g.Root()
	if !ok {
		return nil
	}

	var out [][]rules.Move
	var walk func(n *Node, path []rules.Move)
	walk = func(n *Node, path []rules.Move) {
		var rendered []*Edge
		for _, e := range n.orderedChildren() {
			child := g.nodes[e.To]
			if pp := g.PrimaryParent(child); pp == e {
				rendered = append(rendered, e)
			}
		}
		if len(rendered) == 0 {
			if len(path) > 0 {
				line := make([]rules.Move, len(path))
				copy(line, path)
				out = append(out, line)
			}
			return
		}
		for _, e := range rendered {
			walk(g.nodes[e.To], append(path, e.Move))
		}
	}
	walk(root, nil)
	return out
}

// reaches reports whether to is reachable from from along child edges.
func (g *Graph) reaches(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.nodes[k].children {
			if e.To == to {
				return true
			}
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

func (g *Graph) insert(n *Node) {
	g.nodes[n.Key] = n
	g.order = append(g.order, n.Key)
}

// plyOf derives the ply index from the FEN move counters.
func plyOf(fenStr string) int {
	side, err := fen.SideToMove(fenStr)
	if err != nil {
		return 0
	}
	full := fullmove(fenStr)
	ply := (full - 1) * 2
	if side == "b" {
		ply++
	}
	return ply
}
