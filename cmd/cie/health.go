// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"os"

	"github.com/opencie/cie/internal/errors"
	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/core"
)

// healthResult is the JSON shape of `cie health`.
type healthResult struct {
	Healthy bool `json:"healthy"`
}

// runHealth implements `cie health`, per spec §6's `health()`. An IO
// error (exit code 1, as in `cie sync`) is returned when the workspace
// isn't even open-able; an unhealthy-but-reachable provider
// just reports healthy=false with a normal exit.
func runHealth(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	workspace, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(workspace, globals)
	if err != nil {
		return err
	}
	engine, err := core.Open(cfg)
	if err != nil {
		return errors.NewIOError("Workspace not initialized", err.Error(), "Run `cie init` first", err)
	}
	defer engine.Close()

	healthy := engine.Health(ctx)

	if globals.JSON {
		return output.JSON(healthResult{Healthy: healthy})
	}
	if healthy {
		ui.Success("healthy")
	} else {
		ui.Warning("unhealthy")
	}
	return nil
}
