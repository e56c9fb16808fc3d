// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package logging centralizes the slog setup cmd/cie previously
// inlined ad hoc in each command: a text (or JSON) handler to stderr,
// level selected by Options.Debug (the CLI's -v flag), set
// as both the returned logger and the process default so packages
// that call slog.Default() (as pkg/core.Config.withDefaults does)
// pick it up without being threaded a *slog.Logger explicitly.
package logging

import (
	"log/slog"
	"os"
)

// Options controls the handler New builds.
type Options struct {
	// Debug lowers the level to slog.LevelDebug; otherwise slog.LevelInfo.
	Debug bool

	// JSON selects slog.NewJSONHandler over the default text handler,
	// for callers piping output to another tool (the CLI's --json mode).
	JSON bool
}

// New builds a logger per Options and installs it as the process
// default, mirroring cmd/cie's prior runIndex-local setup.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
