package convert

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/model"
	"github.com/vk/flowgridgo/internal/reference"
)

// GroupMarker is appended to a group container's label on the canvas. The
// collapse strips it again to recover the group name.
const GroupMarker = " (group)"

// Layout constants for the initial node placement. The real layout pass is
// external; these only make a freshly expanded graph readable.
const (
	columnX    = 80.0
	rowGap     = 120.0
	childInset = 40.0
	childGap   = 90.0
	nodeWidth  = 220.0
)

// Expand builds a graph from a scenario document. Steps whose operation names
// a group in the scenario's group table become a container plus one child per
// group step; all other steps become single operation nodes. An operation
// name that matches neither the group table nor the catalog is a non-fatal
// warning: the step is skipped and expansion continues.
func Expand(ctx context.Context, sc *model.Scenario, cat catalog.Catalog) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Expand: starting graph construction.", "steps", len(sc.Steps))

	g := graph.New()
	g.Meta = graph.Meta{Name: sc.Name, Description: sc.Description, Config: sc.Config}

	// First pass: create nodes and the main sequence chain.
	var prev *graph.Node
	row := 0
	for _, step := range sc.Steps {
		var node *graph.Node
		var err error
		if grp, isGroup := sc.Group(step.Operation); isGroup {
			node, err = expandGroup(g, step, grp, cat, row)
		} else {
			node, err = expandStep(g, step, "", cat, row)
		}
		if err != nil {
			return nil, err
		}
		if node == nil {
			logger.Warn("Unknown operation, step skipped.",
				"step", step.EffectiveID(), "operation", step.Operation)
			continue
		}
		if prev != nil {
			if _, err := g.AddSequenceEdge(prev.ID, node.ID); err != nil {
				return nil, fmt.Errorf("failed to chain step %q: %w", step.EffectiveID(), err)
			}
		}
		prev = node
		row++
	}
	logger.Debug("Expand: node creation complete.", "nodes", len(g.Nodes()))

	// Second pass: resolve `needs` into wait-dependency edges. Needs may
	// point forward, so this cannot happen while nodes are still being
	// created.
	for _, n := range g.Nodes() {
		for _, needID := range n.Needs {
			dep, found := resolveNeedsTarget(g, n, needID)
			if !found {
				logger.Warn("Unresolvable needs id, dependency dropped.",
					"node", n.RefID(), "needs", needID)
				continue
			}
			if _, err := g.AddWaitEdge(dep.ID, n.ID); err != nil {
				return nil, fmt.Errorf("failed to link needs %q of %q: %w", needID, n.RefID(), err)
			}
		}
	}
	logger.Debug("Expand: dependency linking complete.")

	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating expanded graph: %w", err)
	}
	return g, nil
}

// expandGroup synthesizes a container node plus one child node per group
// step. The container inherits the referencing step's modifiers; the children
// are chained with sequence edges among themselves only.
func expandGroup(g *graph.Graph, step *model.Step, grp *model.Group, cat catalog.Catalog, row int) (*graph.Node, error) {
	container := &graph.Node{
		ID:          "group." + step.EffectiveID(),
		StepID:      step.EffectiveID(),
		ExplicitID:  step.ID != "",
		Kind:        graph.KindGroup,
		Label:       step.Operation + GroupMarker,
		Background:  step.Background,
		IfCondition: step.If,
		Loop:        step.Loop,
		Description: step.Description,
		Needs:       append([]string(nil), step.Needs...),
		Pos:         graph.Position{X: columnX, Y: rowGap * float64(row)},
		Size: graph.Size{
			Width:  nodeWidth + 2*childInset,
			Height: childGap*float64(len(grp.Steps)) + childInset,
		},
	}
	if err := g.AddNode(container); err != nil {
		return nil, err
	}

	var prevChild *graph.Node
	for i, gstep := range grp.Steps {
		child, err := expandStep(g, gstep, container.ID, cat, i)
		if err != nil {
			return nil, err
		}
		if child == nil {
			// Same policy as top-level: unknown operations are skipped.
			continue
		}
		if prevChild != nil {
			if _, err := g.AddSequenceEdge(prevChild.ID, child.ID); err != nil {
				return nil, fmt.Errorf("failed to chain group step %q: %w", gstep.EffectiveID(), err)
			}
		}
		prevChild = child
	}
	return container, nil
}

// expandStep synthesizes a single operation node. parentID is empty for
// top-level steps. Returns nil (no error) when the operation is unknown.
func expandStep(g *graph.Graph, step *model.Step, parentID string, cat catalog.Catalog, row int) (*graph.Node, error) {
	op, known := cat.Lookup(step.Operation)
	if !known {
		return nil, nil
	}

	node := &graph.Node{
		StepID:      step.EffectiveID(),
		ExplicitID:  step.ID != "",
		Kind:        graph.KindStep,
		ParentID:    parentID,
		Label:       step.EffectiveID(),
		Operation:   step.Operation,
		Params:      resolveParams(op, step.Arguments),
		Background:  step.Background,
		IfCondition: step.If,
		Loop:        step.Loop,
		Description: step.Description,
		Needs:       append([]string(nil), step.Needs...),
	}
	if parentID == "" {
		node.ID = "step." + step.EffectiveID()
		node.Pos = graph.Position{X: columnX, Y: rowGap * float64(row)}
	} else {
		node.ID = parentID + "." + step.EffectiveID()
		node.Pos = graph.Position{X: columnX + childInset, Y: rowGap*float64(row) + childGap*float64(row)}
	}
	if err := g.AddNode(node); err != nil {
		return nil, err
	}
	return node, nil
}

// resolveParams merges the operation's defaults with the step's declared
// arguments. Declared values win; reference-shaped values are normalized into
// *reference.Ref on the way in.
func resolveParams(op *catalog.Operation, args map[string]any) []graph.Param {
	var params []graph.Param
	defaults := op.DefaultArguments()
	for _, name := range op.ParamNames() {
		if value, declared := args[name]; declared {
			params = append(params, graph.Param{Name: name, Value: normalizeValue(value)})
			continue
		}
		if value, defaulted := defaults[name]; defaulted {
			params = append(params, graph.Param{Name: name, Value: value, FromDefault: true})
		}
	}

	// Arguments the catalog does not know about are carried through anyway;
	// the type check in the app layer reports them, and dropping user data
	// during expansion would make the round-trip lossy.
	var extras []string
	for name := range args {
		if _, known := op.Params[name]; !known {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		params = append(params, graph.Param{Name: name, Value: normalizeValue(args[name])})
	}
	return params
}

func normalizeValue(value any) any {
	if ref, ok := reference.Parse(value); ok {
		return ref
	}
	return value
}

// resolveNeedsTarget maps a declarative needs id to a graph node, searching
// the declarative id first, then node labels, then the group-scoped
// "container/step" form. A group child resolves its siblings before anything
// else.
func resolveNeedsTarget(g *graph.Graph, from *graph.Node, needID string) (*graph.Node, bool) {
	if from.ParentID != "" {
		for _, sibling := range g.Children(from.ParentID) {
			if sibling.ID != from.ID && sibling.RefID() == needID {
				return sibling, true
			}
		}
	}
	for _, n := range g.TopLevel() {
		if n.ID != from.ID && n.RefID() == needID {
			return n, true
		}
	}
	for _, n := range g.Nodes() {
		if n.ID != from.ID && n.Label == needID {
			return n, true
		}
	}
	if containerID, childID, isScoped := strings.Cut(needID, "/"); isScoped {
		if container, ok := g.NodeByRefID(containerID); ok {
			for _, child := range g.Children(container.ID) {
				if child.RefID() == childID {
					return child, true
				}
			}
		}
	}
	return nil, false
}
