package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/convert"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/model"
	"github.com/vk/flowgridgo/internal/orchestrator"
	"github.com/vk/flowgridgo/internal/reference"
)

// Run executes every configured scenario against the remote executor.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	files, err := a.scenarioFiles()
	if err != nil {
		return err
	}

	timeout := time.Duration(a.config.TimeoutSeconds) * time.Second
	cl, err := a.dial(ctx, client.Options{
		URL:                a.config.ServerURL,
		Timeout:            timeout,
		InsecureSkipVerify: a.config.Insecure,
	})
	if err != nil {
		return err
	}
	defer cl.Close()

	cat, err := a.loadCatalog(ctx, cl)
	if err != nil {
		return fmt.Errorf("failed to load operation catalog: %w", err)
	}
	a.logger.Debug("Operation catalog ready.", "operations", len(cat))

	var failed []string
	for _, file := range files {
		status, err := a.runScenario(ctx, cl, cat, file)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", file, err)
		}
		if status != graph.StatusSuccess {
			failed = append(failed, fmt.Sprintf("%s (%s)", file, status))
		}
	}

	a.logger.Debug("App.Run method finished.")
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d scenarios did not succeed: %s",
			len(failed), len(files), strings.Join(failed, ", "))
	}
	return nil
}

// runScenario takes one document through the whole pipeline: load, expand,
// validate, collapse back to the canonical form, orchestrate.
func (a *App) runScenario(ctx context.Context, cl client.Client, cat catalog.Catalog, path string) (graph.Status, error) {
	logger := a.logger.With("scenario", path)
	ctx = ctxlog.WithLogger(ctx, logger)

	sc, err := model.LoadFile(path)
	if err != nil {
		return "", err
	}
	logger.Info("📋 Scenario loaded.", "name", sc.Name, "steps", len(sc.Steps))

	g, err := convert.Expand(ctx, sc, cat)
	if err != nil {
		return "", err
	}

	if err := checkArguments(g, cat); err != nil {
		return "", err
	}
	warnDanglingReferences(ctx, g)

	// The canonical form is what ships: graph-level edits made between load
	// and run survive the round-trip.
	canonical, err := convert.Collapse(ctx, g, sc.Groups, cat)
	if err != nil {
		return "", err
	}

	orch := orchestrator.New(cl, g, canonical, orchestrator.Options{
		Mode:                    orchestrator.Mode(a.config.Mode),
		HaltOnBackgroundFailure: a.config.HaltOnBackgroundFailure,
		CollectReport:           a.config.Report,
	})
	result, err := orch.Run(ctx)
	if err != nil {
		return "", err
	}

	if result.Report != nil {
		if err := a.printReport(result.Report); err != nil {
			logger.Warn("Failed to render run report.", "error", err)
		}
	}
	return result.Status, nil
}

// checkArguments type-checks every runnable node's declared arguments against
// the catalog before anything reaches the executor.
func checkArguments(g *graph.Graph, cat catalog.Catalog) error {
	for _, n := range g.Nodes() {
		if !n.Runnable() {
			continue
		}
		args := make(map[string]any)
		for _, p := range n.Params {
			if !p.FromDefault {
				args[p.Name] = p.Value
			}
		}
		if err := cat.CheckArguments(n.Operation, args); err != nil {
			return fmt.Errorf("step %q: %w", n.RefID(), err)
		}
	}
	return nil
}

// warnDanglingReferences surfaces references to steps that do not exist. Not
// fatal: the graph may still be mid-edit, and the executor gives the
// authoritative verdict at run time.
func warnDanglingReferences(ctx context.Context, g *graph.Graph) {
	logger := ctxlog.FromContext(ctx)

	known := make(map[string]bool)
	for _, n := range g.Nodes() {
		known[n.RefID()] = true
	}
	exists := func(stepID string) bool { return known[stepID] }

	for _, n := range g.Nodes() {
		for _, p := range n.Params {
			ref, ok := p.Value.(*reference.Ref)
			if !ok {
				continue
			}
			if err := reference.Resolve(ref, exists); err != nil {
				logger.Warn("Dangling reference.", "step", n.RefID(), "argument", p.Name, "error", err)
			}
		}
	}
}

// printReport renders the executor's run report to the output stream.
func (a *App) printReport(report any) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "--- run report ---\n%s", data)
	return nil
}
