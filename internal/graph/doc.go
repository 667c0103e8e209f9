// Package graph is the visual-graph representation of a scenario: nodes for
// steps and group containers, sequence edges for direct execution order, and
// wait-dependency edges for join points that do not imply direct order.
//
// The graph is an arena keyed by id with explicit mutator functions; there is
// no global graph state. Mutators validate the editing discipline (one
// incoming and one outgoing sequence edge per node) so every representable
// graph collapses back into a well-formed step list. Renderers read immutable
// snapshots; only the mutators change the arena.
package graph
