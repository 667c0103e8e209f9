// Package catalog models the remote executor's capability catalog: the set of
// operation definitions a scenario may invoke, each with a typed parameter
// list, optional defaults, and optional enumerated options.
//
// Why a formal parameter schema?
//
// The schema is the contract between a scenario and the executor. With it the
// converter can resolve defaults when a document is expanded into a graph,
// omit default-valued parameters again when the graph is collapsed back, and
// report type mismatches at load time instead of mid-run. The same Catalog
// shape is produced from two sources: local HCL manifest files (development
// and tests) and the wire payload served by the remote executor.
package catalog
