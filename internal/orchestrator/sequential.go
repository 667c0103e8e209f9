package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
)

// runSequential drives the schedule locally: one RunStep per node, in the
// flattened execution order, joining on wait dependencies before dispatch.
// Background steps are dispatched and left running; everything else blocks
// until its terminal event arrives.
func (o *Orchestrator) runSequential(ctx context.Context) (graph.Status, error) {
	logger := ctxlog.FromContext(ctx)

	failed := false
	for _, n := range executionOrder(o.graph) {
		if ctx.Err() != nil {
			o.cancelRemaining(ctx)
			return graph.StatusCancelled, nil
		}
		if n.Status.Terminal() {
			continue
		}
		if n.Kind == graph.KindGroup {
			_ = o.graph.SetStatus(n.ID, graph.StatusRunning)
			o.publish(n, nil, "", nil)
			if n.Loop != nil {
				logger.Warn("Group loops only run in batch mode; looping once.", "group", n.RefID())
			}
			continue
		}
		if !n.Runnable() {
			continue
		}

		switch joinStateOf(o.graph, n) {
		case joinFailed:
			_ = o.graph.SetStatus(n.ID, graph.StatusSkipped)
			o.publish(n, nil, "", nil)
			continue
		case joinBlocked:
			_ = o.graph.SetStatus(n.ID, graph.StatusWaiting)
			o.publish(n, nil, "", nil)
			cancelled, err := o.awaitJoin(ctx, n)
			if err != nil {
				return "", err
			}
			if cancelled {
				o.cancelRemaining(ctx)
				return graph.StatusCancelled, nil
			}
			if joinStateOf(o.graph, n) == joinFailed {
				_ = o.graph.SetStatus(n.ID, graph.StatusSkipped)
				o.publish(n, nil, "", nil)
				continue
			}
		}

		payload := stepPayload(n, o.containerCondition(n))
		if err := o.client.RunStep(ctx, payload); err != nil {
			return "", fmt.Errorf("failed to dispatch step %q: %w", n.RefID(), err)
		}
		if n.Background {
			continue
		}

		cancelled, mainFailed, err := o.awaitTerminal(ctx, n)
		if err != nil {
			return "", err
		}
		if cancelled {
			o.cancelRemaining(ctx)
			return graph.StatusCancelled, nil
		}
		if mainFailed {
			failed = true
		}
	}

	o.finalizeContainers()
	if failed {
		return graph.StatusFailure, nil
	}
	return graph.StatusSuccess, nil
}

// containerCondition returns the condition a group child inherits from its
// container.
func (o *Orchestrator) containerCondition(n *graph.Node) string {
	if n.ParentID == "" {
		return ""
	}
	if container, ok := o.graph.NodeByID(n.ParentID); ok {
		return container.IfCondition
	}
	return ""
}

// awaitJoin consumes events until the node's wait dependencies settle.
func (o *Orchestrator) awaitJoin(ctx context.Context, n *graph.Node) (cancelled bool, err error) {
	for joinStateOf(o.graph, n) == joinBlocked {
		select {
		case <-ctx.Done():
			return true, nil
		case ev, ok := <-o.client.Events():
			if !ok {
				return false, fmt.Errorf("executor event stream closed while %q waited for dependencies", n.RefID())
			}
			o.handleEvent(ctx, ev)
		}
	}
	return false, nil
}

// awaitTerminal consumes events until the node itself finishes.
func (o *Orchestrator) awaitTerminal(ctx context.Context, n *graph.Node) (cancelled, mainFailed bool, err error) {
	for !n.Status.Terminal() {
		select {
		case <-ctx.Done():
			return true, false, nil
		case ev, ok := <-o.client.Events():
			if !ok {
				return false, false, fmt.Errorf("executor event stream closed while %q ran", n.RefID())
			}
			if o.handleEvent(ctx, ev) {
				mainFailed = true
			}
		}
	}
	return false, mainFailed, nil
}
