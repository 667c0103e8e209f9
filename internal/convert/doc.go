// Package convert translates between the declarative scenario document and
// the visual graph, in both directions.
//
// Expand turns a step list (including group references) into nodes and edges;
// Collapse walks the graph back into a step list. The two are inverses: for
// any scenario without disconnected editor-added nodes, expanding and then
// collapsing reproduces the same steps, arguments, and modifiers. That
// round-trip is the load-bearing property of the package and the main thing
// its tests pin down.
package convert
