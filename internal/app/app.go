package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/flowgridgo/internal/client"
)

// dialFunc abstracts the executor connection so tests can substitute a fake.
type dialFunc func(ctx context.Context, opts client.Options) (client.Client, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	dial   dialFunc
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		dial: func(ctx context.Context, opts client.Options) (client.Client, error) {
			return client.Dial(ctx, opts)
		},
	}
}
