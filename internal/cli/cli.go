package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/flowgridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowGrid - Run declarative test scenarios against a remote executor.

Usage:
  flowgrid [options] [SCENARIO_PATH]

Arguments:
  SCENARIO_PATH
    Path to a single .yaml scenario or a directory containing scenarios.

Options:
`)
		flagSet.PrintDefaults()
	}

	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file or directory.")
	sFlag := flagSet.String("s", "", "Path to the scenario file or directory (shorthand).")
	serverFlag := flagSet.String("server", "", "Executor endpoint URL, e.g. http://localhost:3000/socket.io.")
	manifestsFlag := flagSet.String("manifests-path", "", "Path to local operation manifests. Empty fetches the catalog from the executor.")
	modeFlag := flagSet.String("mode", "batch", "Execution mode. Options: 'batch' or 'sequential'.")
	reportFlag := flagSet.Bool("report", false, "Collect and print the executor's run report.")
	haltFlag := flagSet.Bool("halt-on-background-failure", false, "Treat a failed background step as a run failure.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Int("timeout", 30, "Per-command timeout for executor round-trips, in seconds.")
	insecureFlag := flagSet.Bool("insecure", false, "Skip TLS certificate verification.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *scenarioFlag != "" {
		path = *scenarioFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Scenario path determined.", "path", path)

	if path == "" {
		slog.Debug("No scenario path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if *serverFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "missing -server: the executor endpoint is required"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ScenarioPath:            path,
		ServerURL:               *serverFlag,
		ManifestsPath:           *manifestsFlag,
		Mode:                    strings.ToLower(*modeFlag),
		Report:                  *reportFlag,
		HaltOnBackgroundFailure: *haltFlag,
		LogFormat:               logFormat,
		LogLevel:                logLevel,
		HealthcheckPort:         *healthPortFlag,
		TimeoutSeconds:          *timeoutFlag,
		Insecure:                *insecureFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
