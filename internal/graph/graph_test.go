package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addStep(t *testing.T, g *Graph, id string) *Node {
	t.Helper()
	n := &Node{ID: id, StepID: id, Kind: KindStep, Operation: "op", Label: id}
	require.NoError(t, g.AddNode(n))
	return n
}

func TestAddNode(t *testing.T) {
	g := New()

	n := &Node{Kind: KindStep, Operation: "op"}
	require.NoError(t, g.AddNode(n))
	assert.NotEmpty(t, n.ID, "missing ids are generated")
	assert.Equal(t, StatusPending, n.Status)

	err := g.AddNode(&Node{ID: n.ID})
	assert.ErrorContains(t, err, "duplicate node id")

	err = g.AddNode(&Node{ID: "child", ParentID: "ghost"})
	assert.ErrorContains(t, err, "parent node")
}

func TestSequenceEdgeExclusivity(t *testing.T) {
	g := New()
	addStep(t, g, "a")
	addStep(t, g, "b")
	addStep(t, g, "c")

	_, err := g.AddSequenceEdge("a", "b")
	require.NoError(t, err)

	// A second outgoing edge from "a" violates the main-line discipline.
	_, err = g.AddSequenceEdge("a", "c")
	assert.ErrorIs(t, err, ErrSequenceTaken)

	// As does a second incoming edge into "b".
	_, err = g.AddSequenceEdge("c", "b")
	assert.ErrorIs(t, err, ErrSequenceTaken)

	// Wait edges have no such limit.
	_, err = g.AddWaitEdge("a", "c")
	require.NoError(t, err)
	_, err = g.AddWaitEdge("b", "c")
	require.NoError(t, err)

	_, err = g.AddSequenceEdge("a", "a")
	assert.ErrorContains(t, err, "self-referential")
}

func TestWaitEdgeDeduplication(t *testing.T) {
	g := New()
	addStep(t, g, "a")
	addStep(t, g, "b")

	first, err := g.AddWaitEdge("a", "b")
	require.NoError(t, err)
	second, err := g.AddWaitEdge("a", "b")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, g.Edges(), 1)
}

func TestTopLevelExcludesChildren(t *testing.T) {
	g := New()
	container := &Node{ID: "pack", Kind: KindGroup, Label: "pack"}
	require.NoError(t, g.AddNode(container))
	child := &Node{ID: "pack.fetch", StepID: "fetch", Kind: KindStep, Operation: "op", ParentID: "pack"}
	require.NoError(t, g.AddNode(child))
	addStep(t, g, "verify")

	top := g.TopLevel()
	require.Len(t, top, 2)
	assert.Equal(t, "pack", top[0].ID)
	assert.Equal(t, "verify", top[1].ID)

	children := g.Children("pack")
	require.Len(t, children, 1)
	assert.Equal(t, "fetch", children[0].RefID())
}

func TestSequenceRootsAndWalkHelpers(t *testing.T) {
	g := New()
	addStep(t, g, "a")
	addStep(t, g, "b")
	addStep(t, g, "c")
	_, err := g.AddSequenceEdge("a", "b")
	require.NoError(t, err)
	_, err = g.AddSequenceEdge("b", "c")
	require.NoError(t, err)

	roots := g.SequenceRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)

	next, ok := g.SequenceNext("a")
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	prev, ok := g.SequencePrev("c")
	require.True(t, ok)
	assert.Equal(t, "b", prev.ID)

	_, ok = g.SequenceNext("c")
	assert.False(t, ok)
}

func TestRemoveNodeCascades(t *testing.T) {
	g := New()
	container := &Node{ID: "pack", Kind: KindGroup}
	require.NoError(t, g.AddNode(container))
	require.NoError(t, g.AddNode(&Node{ID: "pack.a", Kind: KindStep, Operation: "op", ParentID: "pack"}))
	require.NoError(t, g.AddNode(&Node{ID: "pack.b", Kind: KindStep, Operation: "op", ParentID: "pack"}))
	addStep(t, g, "after")
	_, err := g.AddSequenceEdge("pack", "after")
	require.NoError(t, err)
	_, err = g.AddSequenceEdge("pack.a", "pack.b")
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode("pack"))
	assert.Len(t, g.Nodes(), 1)
	assert.Empty(t, g.Edges(), "incident edges removed with the node")
}

func TestDetectCycles(t *testing.T) {
	g := New()
	addStep(t, g, "a")
	addStep(t, g, "b")
	_, err := g.AddSequenceEdge("a", "b")
	require.NoError(t, err)
	assert.NoError(t, g.DetectCycles())

	// Force a cycle behind the mutators' backs, the way a corrupted
	// document import could.
	g.addEdge("b", "a", EdgeSequence)
	assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
}

func TestDetectCyclesMixedEdgeKinds(t *testing.T) {
	g := New()
	addStep(t, g, "a")
	addStep(t, g, "b")
	_, err := g.AddSequenceEdge("a", "b")
	require.NoError(t, err)

	// A wait dependency pointing back against the sequence closes a loop
	// even though neither edge set cycles on its own.
	_, err = g.AddWaitEdge("b", "a")
	require.NoError(t, err)
	assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
}

func TestSnapshotIsolation(t *testing.T) {
	g := New()
	n := addStep(t, g, "a")
	n.Params = []Param{{Name: "url", Value: "/health"}}

	snap := g.Snapshot()
	require.Len(t, snap.Nodes, 1)

	snap.Nodes[0].Params[0].Value = "/changed"
	snap.Nodes[0].Status = StatusFailure

	assert.Equal(t, "/health", n.Params[0].Value)
	assert.Equal(t, StatusPending, n.Status)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusSkipped.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusWaiting.Terminal())
	assert.True(t, StatusFailure.Failed())
	assert.True(t, StatusError.Failed())
	assert.False(t, StatusSuccess.Failed())
}
