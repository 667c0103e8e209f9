// Package app contains the core application logic. It wires the scenario
// loader, the converter, the executor client, and the orchestrator into one
// lifecycle, decoupled from any specific entrypoint like a CLI or server.
package app
