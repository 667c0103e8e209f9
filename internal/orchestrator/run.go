package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
)

// Run executes the graph to completion. It returns once every reachable node
// reached a terminal status, the run was cancelled, or the transport failed.
// The graph keeps the statuses reached so far in every case. A second call
// while one run is in flight fails with ErrRunActive.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunActive
	}
	defer o.running.Store(false)

	logger := ctxlog.FromContext(ctx)
	defer o.stream.Shutdown()

	// A cyclic graph is refused before anything reaches the executor.
	if err := o.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicGraph, err)
	}
	if len(o.graph.TopLevel()) > 0 && len(o.graph.SequenceRoots()) == 0 {
		return nil, ErrCyclicGraph
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	defer cancel()

	if err := o.client.ResetSession(runCtx, o.sc.Config); err != nil {
		return nil, fmt.Errorf("failed to reset executor session: %w", err)
	}

	logger.Info("🚀 Run starting.", "mode", string(o.opts.Mode), "nodes", len(o.graph.Nodes()))

	var status graph.Status
	var err error
	switch o.opts.Mode {
	case ModeSequential:
		status, err = o.runSequential(runCtx)
	default:
		status, err = o.runBatch(runCtx)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Status: status}
	if o.opts.CollectReport {
		// Best effort: a run without a report is still a finished run. The
		// parent context may already be cancelled when the run was stopped.
		reportCtx := context.WithoutCancel(runCtx)
		report, rerr := o.client.GenerateReport(reportCtx)
		if rerr != nil {
			logger.Warn("Failed to collect run report.", "error", rerr)
		} else {
			result.Report = report
		}
	}

	logger.Info("🏁 Run finished.", "status", string(status))
	return result, nil
}

// runBatch submits the whole scenario and mirrors the status stream until
// the executor reports the run done.
func (o *Orchestrator) runBatch(ctx context.Context) (graph.Status, error) {
	logger := ctxlog.FromContext(ctx)

	if err := o.client.SubmitScenario(ctx, o.sc); err != nil {
		return "", fmt.Errorf("failed to submit scenario: %w", err)
	}
	logger.Info("📋 Scenario submitted, consuming status stream.", "steps", len(o.sc.Steps))

	failed := false
	for {
		select {
		case <-ctx.Done():
			o.cancelRemaining(ctx)
			return graph.StatusCancelled, nil
		case ev, ok := <-o.client.Events():
			if !ok {
				return "", fmt.Errorf("executor event stream closed mid-run")
			}
			if ev.Done {
				o.finalizeContainers()
				return o.runStatus(ev, failed), nil
			}
			if o.handleEvent(ctx, ev) {
				failed = true
			}
		}
	}
}

// runStatus derives the final status, preferring the executor's own verdict.
func (o *Orchestrator) runStatus(ev client.Event, failed bool) graph.Status {
	if ev.RunStatus != "" {
		return ev.RunStatus
	}
	if failed {
		return graph.StatusFailure
	}
	return graph.StatusSuccess
}

// handleEvent applies one remote status update to the graph and fans it out.
// Returns true when the update is a run-failing step failure.
func (o *Orchestrator) handleEvent(ctx context.Context, ev client.Event) bool {
	logger := ctxlog.FromContext(ctx)

	node, ok := o.eventNode(ev.StepID)
	if !ok {
		logger.Warn("Status update for unknown step dropped.", "step", ev.StepID, "status", string(ev.Status))
		return false
	}
	if !o.applied(ev.StepID, ev.Status) {
		return false
	}

	_ = o.graph.SetStatus(node.ID, ev.Status)
	if ev.Result != nil {
		_ = o.graph.SetResult(node.ID, ev.Result)
	}
	o.publish(node, ev.Result, ev.Error, ev.Logs)
	logger.Info(ev.Status.Icon()+" Step "+string(ev.Status)+".", "step", node.RefID(), "error", ev.Error)

	if !ev.Status.Failed() {
		return false
	}
	if node.Background && !o.opts.HaltOnBackgroundFailure {
		logger.Warn("Background step failed; steps joining on it will be skipped.", "step", node.RefID())
		return false
	}

	// A failing group child fails its container; the main line resumes the
	// skip walk from there.
	failedFrom := node
	if node.ParentID != "" {
		if container, ok := o.graph.NodeByID(node.ParentID); ok {
			_ = o.graph.SetStatus(container.ID, graph.StatusFailure)
			o.publish(container, nil, "", nil)
			failedFrom = container
		}
	}
	for _, skipped := range o.skipDownstream(failedFrom) {
		o.publish(skipped, nil, "", nil)
	}
	return true
}

// eventNode maps a remote step id onto a graph node. Plain ids resolve via
// the declarative identity; "container/step" resolves a group child.
func (o *Orchestrator) eventNode(stepID string) (*graph.Node, bool) {
	if n, ok := o.graph.NodeByRefID(stepID); ok {
		return n, true
	}
	containerID, childID, scoped := cutScopedID(stepID)
	if !scoped {
		return nil, false
	}
	container, ok := o.graph.NodeByRefID(containerID)
	if !ok {
		return nil, false
	}
	for _, child := range o.graph.Children(container.ID) {
		if child.RefID() == childID {
			return child, true
		}
	}
	return nil, false
}

func cutScopedID(id string) (container, child string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

// finalizeContainers settles group containers the executor never reported
// on: success when every child succeeded, failure when any child failed.
func (o *Orchestrator) finalizeContainers() {
	for _, n := range o.graph.TopLevel() {
		if n.Kind != graph.KindGroup || n.Status.Terminal() {
			continue
		}
		status := graph.StatusSuccess
		for _, child := range o.graph.Children(n.ID) {
			if child.Status.Failed() {
				status = graph.StatusFailure
				break
			}
			if !child.Status.Terminal() {
				status = graph.StatusSkipped
			}
		}
		_ = o.graph.SetStatus(n.ID, status)
		o.publish(n, nil, "", nil)
	}
}

// cancelRemaining marks every non-terminal node cancelled and tells the
// executor to stop, best effort.
func (o *Orchestrator) cancelRemaining(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🛑 Run cancelled, winding down.")

	for _, n := range o.graph.Nodes() {
		if n.Status.Terminal() {
			continue
		}
		_ = o.graph.SetStatus(n.ID, graph.StatusCancelled)
		o.publish(n, nil, "", nil)
	}
	if err := o.client.Stop(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("Failed to stop executor run.", "error", err)
	}
}
