// Package model holds the declarative representation of a scenario: the step
// list, the reusable group table, and the scenario metadata, exactly as they
// are stored in a scenario document.
//
// Why keep a declarative model separate from the graph?
//
// The document is what users write, diff, and store; the graph is what the
// editor renders and the orchestrator walks. Keeping the stored form as plain
// YAML-tagged structs means the converter owns every translation decision, and
// a document survives a load/save cycle byte-for-byte in meaning even when the
// graph representation evolves.
package model
