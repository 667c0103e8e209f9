// Package client talks to the remote scenario executor. The executor owns
// the actual test tooling; this side only ships work over and listens to the
// resulting status stream.
package client

import (
	"context"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/model"
)

// Event is one remote status update. Events arrive per step while a run is in
// flight; the final event of a run has Done set and carries the overall run
// status instead of a step id.
type Event struct {
	StepID string       `json:"id"`
	Status graph.Status `json:"status"`
	Result any          `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
	Logs   []string     `json:"logs,omitempty"`

	// Done marks the run-finished event.
	Done      bool         `json:"-"`
	RunStatus graph.Status `json:"runStatus,omitempty"`
}

// StepPayload is the wire form of one step handed to the executor. Reference
// arguments are already rewritten into their template-string form.
type StepPayload struct {
	ID         string         `json:"id"`
	Operation  string         `json:"operation"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	If         string         `json:"if,omitempty"`
	Loop       *model.Loop    `json:"loop,omitempty"`
	Background bool           `json:"background,omitempty"`
}

// Client is the control surface of a remote executor session.
type Client interface {
	// ResetSession clears any state left over from a previous run. The
	// scenario's configuration travels with the reset so the new session
	// starts from it.
	ResetSession(ctx context.Context, config map[string]any) error

	// SubmitScenario ships a whole scenario for a batch run. Step progress
	// arrives on Events.
	SubmitScenario(ctx context.Context, sc *model.Scenario) error

	// RunStep executes a single step and returns once the executor accepted
	// it. Completion arrives on Events.
	RunStep(ctx context.Context, step StepPayload) error

	// Events returns the stream of remote status updates. The channel is
	// closed when the client closes.
	Events() <-chan Event

	// GenerateReport asks the executor for the run report of the current
	// session.
	GenerateReport(ctx context.Context) (any, error)

	// Stop aborts the in-flight run.
	Stop(ctx context.Context) error

	// FetchCatalog retrieves the operations the executor supports.
	FetchCatalog(ctx context.Context) (catalog.Catalog, error)

	Close() error
}
