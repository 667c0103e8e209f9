package app

import (
	"errors"
	"fmt"

	"github.com/vk/flowgridgo/internal/orchestrator"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPath string // yaml scenario file or directory
	ServerURL    string // executor endpoint

	// ManifestsPath points at local HCL operation manifests. Empty means the
	// catalog is fetched from the executor instead.
	ManifestsPath string

	Mode                    string // "batch" or "sequential"
	Report                  bool
	HaltOnBackgroundFailure bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	TimeoutSeconds  int
	Insecure        bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenarioPath == "" {
		return nil, errors.New("ScenarioPath is a required configuration field and cannot be empty")
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("ServerURL is a required configuration field and cannot be empty")
	}
	switch orchestrator.Mode(cfg.Mode) {
	case "", orchestrator.ModeBatch, orchestrator.ModeSequential:
	default:
		return nil, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, orchestrator.ModeBatch, orchestrator.ModeSequential)
	}
	return &cfg, nil
}
