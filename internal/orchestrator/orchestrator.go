// Package orchestrator drives a run: it ships work to the remote executor,
// mirrors the resulting status stream onto the graph, and enforces the local
// scheduling rules the executor does not know about (wait joins, skip
// propagation, cancellation).
package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/eventstream"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/model"
)

// Mode selects how work reaches the executor.
type Mode string

const (
	// ModeBatch submits the whole scenario at once and consumes the status
	// stream. This is the primary mode.
	ModeBatch Mode = "batch"

	// ModeSequential dispatches one step at a time, driving the schedule
	// locally. Fallback for executors without batch support.
	ModeSequential Mode = "sequential"
)

// ErrCyclicGraph means the graph has no runnable entry point. Detected before
// anything is sent to the executor.
var ErrCyclicGraph = errors.New("orchestrator: graph has a dependency cycle")

// ErrRunActive means Run was called while a previous call is still in flight.
// Only one run may drive the executor session at a time.
var ErrRunActive = errors.New("orchestrator: a run is already active")

// Options tune a run.
type Options struct {
	Mode Mode

	// HaltOnBackgroundFailure promotes a failed background step to a run
	// failure. Off by default: background steps are fire-and-forget and
	// their failures only fail steps that join on them.
	HaltOnBackgroundFailure bool

	// CollectReport requests the executor's run report once the run ends.
	CollectReport bool
}

// StepEvent is one orchestrator-level status update, fanned out to all
// subscribers (the CLI, a UI, tests).
type StepEvent struct {
	NodeID string
	StepID string
	Status graph.Status
	Result any
	Error  string
	Logs   []string
}

// Result is the outcome of a completed run.
type Result struct {
	Status graph.Status

	// Report is the executor's run report, nil unless requested and
	// available.
	Report any
}

// dedupKey identifies a status update. The executor may re-emit events on
// reconnects; each (step, status) pair is applied once.
type dedupKey struct {
	stepID string
	status graph.Status
}

// Orchestrator runs one graph against one executor session. Not reusable:
// create a new one per run.
type Orchestrator struct {
	client client.Client
	graph  *graph.Graph
	sc     *model.Scenario
	opts   Options

	stream  *eventstream.Streamer[StepEvent]
	seen    map[dedupKey]struct{}
	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
}

// New prepares a run for the given graph. The scenario is the declarative
// form of the same graph; batch mode ships it as-is.
func New(cl client.Client, g *graph.Graph, sc *model.Scenario, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = ModeBatch
	}
	return &Orchestrator{
		client: cl,
		graph:  g,
		sc:     sc,
		opts:   opts,
		stream: eventstream.New[StepEvent](),
		seen:   make(map[dedupKey]struct{}),
	}
}

// Events subscribes to the run's status updates. Subscribe before calling
// Run; the channel closes when the run ends.
func (o *Orchestrator) Events(ctx context.Context) (<-chan StepEvent, error) {
	return o.stream.Subscribe(ctx)
}

// Stop aborts the run: the executor is told to stop and the local event loop
// winds down. Safe to call from any goroutine, once.
func (o *Orchestrator) Stop() {
	if !o.stopped.CompareAndSwap(false, true) {
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
}

// applied records and deduplicates one remote status update. Returns false
// when the exact update was seen before.
func (o *Orchestrator) applied(stepID string, status graph.Status) bool {
	key := dedupKey{stepID: stepID, status: status}
	if _, dup := o.seen[key]; dup {
		return false
	}
	o.seen[key] = struct{}{}
	return true
}

// publish mirrors a node change onto the stream.
func (o *Orchestrator) publish(n *graph.Node, result any, errMsg string, logs []string) {
	o.stream.Publish(StepEvent{
		NodeID: n.ID,
		StepID: n.RefID(),
		Status: n.Status,
		Result: result,
		Error:  errMsg,
		Logs:   logs,
	})
}
