package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Meta is the scenario-level metadata carried alongside the graph so a
// collapse can reproduce the original document header.
type Meta struct {
	Name        string
	Description string
	Config      map[string]any
}

// Graph is an arena of nodes and edges keyed by id. Iteration order is
// insertion order, so everything derived from the graph is deterministic.
type Graph struct {
	Meta Meta

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

var (
	// ErrSequenceTaken rejects a sequence edge that would give a node a
	// second direct predecessor or successor.
	ErrSequenceTaken = errors.New("node already has a sequence edge in that direction")
)

// AddNode inserts a node into the arena. A missing ID is generated. Adding a
// duplicate id is an error.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node id %q", n.ID)
	}
	if n.ParentID != "" {
		if _, ok := g.nodes[n.ParentID]; !ok {
			return fmt.Errorf("parent node %q not found for node %q", n.ParentID, n.ID)
		}
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// AddSequenceEdge connects source to target in the main execution line. It
// enforces the editing discipline: no self edges, both nodes present, and at
// most one outgoing/incoming sequence edge per node.
func (g *Graph) AddSequenceEdge(sourceID, targetID string) (*Edge, error) {
	if err := g.checkEndpoints(sourceID, targetID); err != nil {
		return nil, err
	}
	for _, e := range g.sequenceEdges() {
		if e.Source == sourceID {
			return nil, fmt.Errorf("%w: %q already has a successor", ErrSequenceTaken, sourceID)
		}
		if e.Target == targetID {
			return nil, fmt.Errorf("%w: %q already has a predecessor", ErrSequenceTaken, targetID)
		}
	}
	return g.addEdge(sourceID, targetID, EdgeSequence), nil
}

// AddWaitEdge connects source to target with a wait-dependency. Duplicate
// pairs are collapsed into the existing edge.
func (g *Graph) AddWaitEdge(sourceID, targetID string) (*Edge, error) {
	if err := g.checkEndpoints(sourceID, targetID); err != nil {
		return nil, err
	}
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		if e.Kind == EdgeWait && e.Source == sourceID && e.Target == targetID {
			return e, nil
		}
	}
	return g.addEdge(sourceID, targetID, EdgeWait), nil
}

func (g *Graph) checkEndpoints(sourceID, targetID string) error {
	if sourceID == targetID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", sourceID, targetID)
	}
	if _, ok := g.nodes[sourceID]; !ok {
		return fmt.Errorf("source node not found: %s", sourceID)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return fmt.Errorf("target node not found: %s", targetID)
	}
	return nil
}

func (g *Graph) addEdge(sourceID, targetID string, kind EdgeKind) *Edge {
	e := &Edge{ID: uuid.NewString(), Source: sourceID, Target: targetID, Kind: kind}
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	return e
}

// RemoveEdge deletes an edge from the arena.
func (g *Graph) RemoveEdge(edgeID string) error {
	if _, ok := g.edges[edgeID]; !ok {
		return fmt.Errorf("edge not found: %s", edgeID)
	}
	delete(g.edges, edgeID)
	g.edgeOrder = removeID(g.edgeOrder, edgeID)
	return nil
}

// RemoveNode deletes a node, its incident edges, and (for containers) its
// children.
func (g *Graph) RemoveNode(nodeID string) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	if n.Kind == KindGroup {
		for _, child := range g.Children(nodeID) {
			if err := g.RemoveNode(child.ID); err != nil {
				return err
			}
		}
	}
	for _, id := range append([]string(nil), g.edgeOrder...) {
		e := g.edges[id]
		if e.Source == nodeID || e.Target == nodeID {
			delete(g.edges, id)
			g.edgeOrder = removeID(g.edgeOrder, id)
		}
	}
	delete(g.nodes, nodeID)
	g.nodeOrder = removeID(g.nodeOrder, nodeID)
	return nil
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// NodeByID looks a node up by graph id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByRefID looks a node up by its declarative identity.
func (g *Graph) NodeByRefID(refID string) (*Node, bool) {
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.RefID() == refID {
			return n, true
		}
	}
	return nil, false
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// TopLevel returns the nodes that participate in top-level ordering: every
// node without a container parent. Group children never appear here.
func (g *Graph) TopLevel() []*Node {
	var out []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.ParentID == "" {
			out = append(out, n)
		}
	}
	return out
}

// Children returns a container's child nodes in insertion order.
func (g *Graph) Children(containerID string) []*Node {
	var out []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.ParentID == containerID {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) sequenceEdges() []*Edge {
	var out []*Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Kind == EdgeSequence {
			out = append(out, e)
		}
	}
	return out
}

// SequenceRoots returns the top-level nodes with no incoming sequence edge.
func (g *Graph) SequenceRoots() []*Node {
	hasIncoming := make(map[string]bool)
	for _, e := range g.sequenceEdges() {
		hasIncoming[e.Target] = true
	}
	var roots []*Node
	for _, n := range g.TopLevel() {
		if !hasIncoming[n.ID] {
			roots = append(roots, n)
		}
	}
	return roots
}

// SequenceNext returns the node's direct successor in the main line.
func (g *Graph) SequenceNext(nodeID string) (*Node, bool) {
	for _, e := range g.sequenceEdges() {
		if e.Source == nodeID {
			return g.nodes[e.Target], true
		}
	}
	return nil, false
}

// SequencePrev returns the node's direct predecessor in the main line.
func (g *Graph) SequencePrev(nodeID string) (*Node, bool) {
	for _, e := range g.sequenceEdges() {
		if e.Target == nodeID {
			return g.nodes[e.Source], true
		}
	}
	return nil, false
}

// WaitSources returns the nodes the target waits for, in edge insertion
// order.
func (g *Graph) WaitSources(targetID string) []*Node {
	var out []*Node
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		if e.Kind == EdgeWait && e.Target == targetID {
			out = append(out, g.nodes[e.Source])
		}
	}
	return out
}

// SetStatus patches a node's UI-visible status.
func (g *Graph) SetStatus(nodeID string, status Status) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	n.Status = status
	return nil
}

// SetResult patches a node's UI-visible result payload.
func (g *Graph) SetResult(nodeID string, result any) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	n.Result = result
	return nil
}

// DetectCycles checks the combined sequence and wait-dependency edge set for
// cycles using DFS. Either kind of edge participating in a loop would
// deadlock the scheduler.
func (g *Graph) DetectCycles() error {
	next := make(map[string][]string)
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		next[e.Source] = append(next[e.Source], e.Target)
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var visit func(id string) error
	visit = func(id string) error {
		visiting[id] = true
		for _, succ := range next[id] {
			if visiting[succ] {
				return fmt.Errorf("cycle detected involving %q", succ)
			}
			if !visited[succ] {
				if err := visit(succ); err != nil {
					return err
				}
			}
		}
		delete(visiting, id)
		visited[id] = true
		return nil
	}

	for _, id := range g.nodeOrder {
		if !visited[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot returns a deep copy of the graph for renderers. Mutations to the
// arena never show through a snapshot.
type Snapshot struct {
	Meta  Meta
	Nodes []*Node
	Edges []*Edge
}

// Snapshot deep-copies the current arena state.
func (g *Graph) Snapshot() *Snapshot {
	snap := &Snapshot{Meta: g.Meta}
	for _, id := range g.nodeOrder {
		snap.Nodes = append(snap.Nodes, g.nodes[id].clone())
	}
	for _, id := range g.edgeOrder {
		snap.Edges = append(snap.Edges, g.edges[id].clone())
	}
	return snap
}
