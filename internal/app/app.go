// Package app is the composition root: it wires the input loader, the
// design graph, the score cache, and the search controller into one run.
package app

import (
	"io"
	"log/slog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
}

// New constructs the application with an isolated logger. Result text
// goes to outW; logs go to errW so reports stay machine-consumable.
func New(outW, errW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, errW)
	return &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: config,
	}
}

// Logger exposes the app logger, primarily for tests.
func (a *App) Logger() *slog.Logger { return a.logger }
