package graph

// EdgeKind distinguishes the two edge families.
type EdgeKind int

const (
	// EdgeSequence defines direct execution order (rendered solid). Under
	// the editing discipline a node has at most one in each direction.
	EdgeSequence EdgeKind = iota
	// EdgeWait defines a "must complete before" relationship without
	// implying direct order (rendered dashed). Unordered, many-to-many.
	EdgeWait
)

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string
	Source string
	Target string
	Kind   EdgeKind
}

func (e *Edge) clone() *Edge {
	out := *e
	return &out
}
