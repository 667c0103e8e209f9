package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/fsutil"
)

// scenarioFiles resolves the configured path into the list of scenario
// documents to run. A file is taken as-is; a directory yields every yaml file
// under it, in sorted order.
func (a *App) scenarioFiles() ([]string, error) {
	info, err := os.Stat(a.config.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{a.config.ScenarioPath}, nil
	}

	files, err := fsutil.FindFilesByExtension(a.config.ScenarioPath, ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenario directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found under %s", a.config.ScenarioPath)
	}
	return files, nil
}

// loadCatalog resolves the operation catalog, preferring local manifests over
// a round-trip to the executor.
func (a *App) loadCatalog(ctx context.Context, cl client.Client) (catalog.Catalog, error) {
	if a.config.ManifestsPath != "" {
		a.logger.Debug("Loading operation catalog from local manifests.", "path", a.config.ManifestsPath)
		return catalog.LoadDir(ctx, a.config.ManifestsPath)
	}
	a.logger.Debug("Fetching operation catalog from executor.")
	return cl.FetchCatalog(ctx)
}
