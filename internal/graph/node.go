package graph

import (
	"github.com/vk/flowgridgo/internal/model"
)

// NodeKind distinguishes the kinds of vertices in the graph.
type NodeKind int

const (
	// KindStep is a node that executes one operation.
	KindStep NodeKind = iota
	// KindGroup is a container node holding an expanded group's children.
	KindGroup
)

// Position is the node's location on the canvas. The auto-layout algorithm
// (external) consumes and produces these values; the converter only assigns
// initial ones.
type Position struct {
	X float64
	Y float64
}

// Size is the node's rendered extent. Only group containers carry a
// meaningful size; step nodes use the renderer's default.
type Size struct {
	Width  float64
	Height float64
}

// Param is one resolved argument of a step node. Value is either a plain
// literal or a *reference.Ref; reference strings are normalized into Refs
// when the node is built, never stored as raw templates.
type Param struct {
	Name  string
	Value any

	// FromDefault marks values that came from the operation's catalog
	// default rather than the step's declared arguments. Collapse omits
	// them again.
	FromDefault bool
}

// Node is a single vertex: an operation step, a group container, or a group
// child (a step node with ParentID set).
type Node struct {
	// ID is the graph-local identity, distinct from the declarative step id.
	ID string

	// StepID is the declarative identity used by references and `needs`.
	// Empty for nodes that never had an explicit declarative id; RefID
	// falls back to ID then.
	StepID string

	// ExplicitID records that the declarative document spelled the id out,
	// even when it equals the operation name. Collapse re-emits it then.
	ExplicitID bool

	Kind NodeKind

	// ParentID is set on a group container's children. Containment is
	// geometric ownership only; it is never a dependency edge.
	ParentID string

	// Label is what the canvas shows: the effective step id for step nodes,
	// the group name plus the group marker for containers.
	Label string

	// Operation names the remote capability; empty on containers.
	Operation string

	Params []Param

	Background  bool
	IfCondition string
	Loop        *model.Loop
	Description string

	// Needs holds graph node ids this node waits for (resolved from the
	// declarative ids at expansion time).
	Needs []string

	Pos  Position
	Size Size

	// Status and Result are orchestrator feedback for the UI. They are not
	// part of the persisted declarative form.
	Status Status
	Result any
}

// RefID returns the node's declarative identity: StepID when present,
// otherwise the graph id.
func (n *Node) RefID() string {
	if n.StepID != "" {
		return n.StepID
	}
	return n.ID
}

// Runnable reports whether the node itself executes an operation remotely.
// Containers are ordering/bookkeeping vertices only.
func (n *Node) Runnable() bool {
	return n.Kind == KindStep && n.Operation != ""
}

// clone returns a deep copy for snapshots.
func (n *Node) clone() *Node {
	out := *n
	if n.Params != nil {
		out.Params = append([]Param(nil), n.Params...)
	}
	if n.Needs != nil {
		out.Needs = append([]string(nil), n.Needs...)
	}
	if n.Loop != nil {
		loop := *n.Loop
		out.Loop = &loop
	}
	return &out
}
