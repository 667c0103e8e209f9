package orchestrator

import (
	"sort"

	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/reference"
)

// executionOrder flattens the graph into the deterministic dispatch order:
// the top-level sequence walked from its roots (tie-broken by vertical
// position), each group container immediately followed by its children in
// their own chain order. Disconnected nodes come last, in insertion order.
func executionOrder(g *graph.Graph) []*graph.Node {
	roots := g.SequenceRoots()
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Pos.Y < roots[j].Pos.Y
	})

	var order []*graph.Node
	visited := make(map[string]bool)
	emit := func(n *graph.Node) {
		visited[n.ID] = true
		order = append(order, n)
		if n.Kind == graph.KindGroup {
			for _, child := range childChain(g, n.ID) {
				visited[child.ID] = true
				order = append(order, child)
			}
		}
	}

	for _, root := range roots {
		for n, ok := root, true; ok && !visited[n.ID]; n, ok = g.SequenceNext(n.ID) {
			emit(n)
		}
	}
	for _, n := range g.TopLevel() {
		if !visited[n.ID] {
			emit(n)
		}
	}
	return order
}

// childChain orders a container's children along their internal sequence
// edges, falling back to insertion order for unchained ones.
func childChain(g *graph.Graph, containerID string) []*graph.Node {
	children := g.Children(containerID)
	isChild := make(map[string]bool, len(children))
	hasIncoming := make(map[string]bool)
	for _, c := range children {
		isChild[c.ID] = true
	}
	for _, c := range children {
		if prev, ok := g.SequencePrev(c.ID); ok && isChild[prev.ID] {
			hasIncoming[c.ID] = true
		}
	}

	var order []*graph.Node
	visited := make(map[string]bool)
	for _, c := range children {
		if hasIncoming[c.ID] {
			continue
		}
		for n, ok := c, true; ok && isChild[n.ID] && !visited[n.ID]; n, ok = g.SequenceNext(n.ID) {
			visited[n.ID] = true
			order = append(order, n)
		}
	}
	for _, c := range children {
		if !visited[c.ID] {
			order = append(order, c)
		}
	}
	return order
}

// stepPayload builds the wire form of one node. Defaulted parameters are
// omitted (the executor applies its own defaults); reference values are
// rewritten into their template-string form. A child node without its own
// condition inherits the container's.
func stepPayload(n *graph.Node, containerIf string) client.StepPayload {
	payload := client.StepPayload{
		ID:         n.RefID(),
		Operation:  n.Operation,
		If:         n.IfCondition,
		Loop:       n.Loop,
		Background: n.Background,
	}
	if payload.If == "" {
		payload.If = containerIf
	}
	for _, p := range n.Params {
		if p.FromDefault {
			continue
		}
		if payload.Arguments == nil {
			payload.Arguments = make(map[string]any)
		}
		payload.Arguments[p.Name] = reference.Rewrite(p.Value)
	}
	return payload
}

// joinState summarizes a node's wait dependencies.
type joinState int

const (
	joinReady   joinState = iota // all sources finished successfully
	joinBlocked                  // at least one source still in flight
	joinFailed                   // at least one source failed or was skipped
)

// joinStateOf inspects the node's incoming wait edges.
func joinStateOf(g *graph.Graph, n *graph.Node) joinState {
	state := joinReady
	for _, src := range g.WaitSources(n.ID) {
		switch {
		case src.Status.Failed(), src.Status == graph.StatusSkipped, src.Status == graph.StatusCancelled:
			return joinFailed
		case !src.Status.Terminal():
			state = joinBlocked
		}
	}
	return state
}

// skipDownstream marks every transitive sequence successor of the node as
// skipped, containers cascading into their children. Already-terminal nodes
// are left alone. Returns the nodes whose status changed.
func (o *Orchestrator) skipDownstream(from *graph.Node) []*graph.Node {
	var changed []*graph.Node
	mark := func(n *graph.Node) {
		if n.Status.Terminal() {
			return
		}
		_ = o.graph.SetStatus(n.ID, graph.StatusSkipped)
		changed = append(changed, n)
	}

	for n, ok := o.graph.SequenceNext(from.ID); ok; n, ok = o.graph.SequenceNext(n.ID) {
		mark(n)
		if n.Kind == graph.KindGroup {
			for _, child := range o.graph.Children(n.ID) {
				mark(child)
			}
		}
	}
	return changed
}
