package convert

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/model"
	"github.com/vk/flowgridgo/internal/reference"
)

// Collapse walks a graph back into a declarative scenario. The original
// group table is passed through so group bodies re-serialize faithfully; the
// graph itself contributes the top-level step order, arguments, modifiers,
// and recovered `needs`.
func Collapse(ctx context.Context, g *graph.Graph, groups map[string]*model.Group, cat catalog.Catalog) (*model.Scenario, error) {
	logger := ctxlog.FromContext(ctx)

	sc := &model.Scenario{
		Name:        g.Meta.Name,
		Description: g.Meta.Description,
		Config:      g.Meta.Config,
	}
	if len(groups) > 0 {
		sc.Groups = make(map[string]*model.Group, len(groups))
		for name, grp := range groups {
			sc.Groups[name] = grp.Clone()
		}
	}

	for _, node := range orderTopLevel(g) {
		step := nodeToStep(g, node, cat)
		sc.Steps = append(sc.Steps, step)
	}

	logger.Debug("Collapse: scenario rebuilt.", "steps", len(sc.Steps))
	return sc, nil
}

// orderTopLevel computes the deterministic step order: a walk from the
// sequence roots following sequence edges, roots tie-broken by vertical
// position, with nodes unreachable from any root appended afterwards in
// their original relative order.
func orderTopLevel(g *graph.Graph) []*graph.Node {
	roots := g.SequenceRoots()
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Pos.Y < roots[j].Pos.Y
	})

	var ordered []*graph.Node
	visited := make(map[string]bool)
	for _, root := range roots {
		for n, ok := root, true; ok && !visited[n.ID]; n, ok = g.SequenceNext(n.ID) {
			visited[n.ID] = true
			ordered = append(ordered, n)
		}
	}

	// Disconnected nodes keep their original relative order at the end.
	for _, n := range g.TopLevel() {
		if !visited[n.ID] {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

// nodeToStep emits the declarative step for one top-level node.
func nodeToStep(g *graph.Graph, node *graph.Node, cat catalog.Catalog) *model.Step {
	step := &model.Step{
		Description: node.Description,
		Background:  node.Background,
		If:          node.IfCondition,
		Loop:        node.Loop,
		Needs:       recoverNeeds(g, node),
	}

	if node.Kind == graph.KindGroup {
		step.Operation = strings.TrimSuffix(node.Label, GroupMarker)
	} else {
		step.Operation = node.Operation
		step.Arguments = collapseParams(node, cat)
	}
	if node.StepID != "" && (node.ExplicitID || node.StepID != step.Operation) {
		step.ID = node.StepID
	}
	return step
}

// collapseParams re-emits a node's non-default arguments. Values still equal
// to the catalog default are omitted, references serialize through the codec,
// and the reference scope is normalized to the node's group membership.
func collapseParams(node *graph.Node, cat catalog.Catalog) map[string]any {
	var defaults map[string]any
	if op, ok := cat.Lookup(node.Operation); ok {
		defaults = op.DefaultArguments()
	}

	args := make(map[string]any)
	for _, p := range node.Params {
		if p.FromDefault {
			continue
		}
		if ref, isRef := p.Value.(*reference.Ref); isRef {
			args[p.Name] = reference.Format(normalizeScope(ref, node))
			continue
		}
		if def, hasDefault := defaults[p.Name]; hasDefault && reflect.DeepEqual(def, p.Value) {
			continue
		}
		args[p.Name] = p.Value
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

// normalizeScope enforces the scope invariant: references from a top-level
// step serialize with `steps.`, references between two steps inside the same
// group with `group.`.
func normalizeScope(ref *reference.Ref, node *graph.Node) *reference.Ref {
	want := reference.ScopeSteps
	if node.ParentID != "" {
		want = reference.ScopeGroup
	}
	if ref.Scope == want {
		return ref
	}
	out := *ref
	out.Scope = want
	return &out
}

// recoverNeeds maps a node's incoming wait-dependency edges back to
// declarative step ids, deduplicated, in edge order.
func recoverNeeds(g *graph.Graph, node *graph.Node) []string {
	var needs []string
	seen := make(map[string]bool)
	for _, source := range g.WaitSources(node.ID) {
		id := source.RefID()
		if !seen[id] {
			seen[id] = true
			needs = append(needs, id)
		}
	}
	return needs
}
