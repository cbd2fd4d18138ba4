package flow

import "fmt"

// Node is one canned dialogue step.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Message  string   `json:"message" yaml:"message"`
	Question string   `json:"question,omitempty" yaml:"question,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Image    string   `json:"image,omitempty" yaml:"image,omitempty"`
}

// Edge connects a node's option to its follow-up node.
type Edge struct {
	SourceNodeID      string `json:"sourceNodeId" yaml:"sourceNodeId"`
	SourceOptionIndex int    `json:"sourceOptionIndex" yaml:"sourceOptionIndex"`
	TargetNodeID      string `json:"targetNodeId" yaml:"targetNodeId"`
}

// Graph is a directed graph of dialogue nodes scripting a conversation
// without a generation backend. AllowAIFallback controls whether an
// unresolved turn may defer to free-form generation.
type Graph struct {
	Nodes           []Node `json:"nodes" yaml:"nodes"`
	Edges           []Edge `json:"edges" yaml:"edges"`
	AllowAIFallback bool   `json:"allowAiFallback" yaml:"allowAiFallback"`
}

// Validate checks the structural invariants: node IDs unique, edges
// referencing known nodes, and exactly one root (a node with no incoming
// edge). Graphs with zero or several roots are rejected at load time rather
// than silently picking an arbitrary node.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("flow graph has no nodes")
	}
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("flow node with empty id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate flow node id %q", n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		if !ids[e.SourceNodeID] {
			return fmt.Errorf("flow edge from unknown node %q", e.SourceNodeID)
		}
		if !ids[e.TargetNodeID] {
			return fmt.Errorf("flow edge to unknown node %q", e.TargetNodeID)
		}
		if e.SourceOptionIndex < 0 {
			return fmt.Errorf("flow edge from %q has negative option index", e.SourceNodeID)
		}
	}
	roots := g.rootIDs()
	if len(roots) == 0 {
		return fmt.Errorf("flow graph has no root node")
	}
	if len(roots) > 1 {
		return fmt.Errorf("flow graph has %d root nodes, want exactly one", len(roots))
	}
	return nil
}

func (g *Graph) rootIDs() []string {
	incoming := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		incoming[e.TargetNodeID] = true
	}
	var roots []string
	for _, n := range g.Nodes {
		if !incoming[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Root returns the unique node with no incoming edge. On a graph that passed
// Validate it is never nil.
func (g *Graph) Root() *Node {
	roots := g.rootIDs()
	if len(roots) != 1 {
		return nil
	}
	return g.node(roots[0])
}

func (g *Graph) node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Next walks one step: the first turn with no current node lands on the
// root; otherwise the edge matching (currentNodeID, optionIndex) decides.
// nil means no scripted follow-up exists.
func (g *Graph) Next(currentNodeID string, optionIndex int, turnCount int) *Node {
	if currentNodeID == "" {
		if turnCount == 0 {
			return g.Root()
		}
		return nil
	}
	for _, e := range g.Edges {
		if e.SourceNodeID == currentNodeID && e.SourceOptionIndex == optionIndex {
			return g.node(e.TargetNodeID)
		}
	}
	return nil
}

// Resolve applies the fallback policy on top of Next: when nothing resolves
// and free-form generation is disabled, the conversation restarts at the
// root instead of dead-ending.
func (g *Graph) Resolve(currentNodeID string, optionIndex int, turnCount int) *Node {
	if n := g.Next(currentNodeID, optionIndex, turnCount); n != nil {
		return n
	}
	if !g.AllowAIFallback {
		return g.Root()
	}
	return nil
}
