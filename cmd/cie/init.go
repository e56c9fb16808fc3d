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

	"github.com/opencie/cie/internal/config"
	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/core"
)

// runInit implements `cie init`: loads .cie/config.yaml (if any) and
// builds a brand-new store from a clean workspace, per spec §6's
// `init(workspace)`.
func runInit(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.Parse(args)

	workspace, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(workspace, globals)
	if err != nil {
		return err
	}

	sp := NewProgressConfig(globals)
	spinner := NewSpinner(sp, "Building graph and index")

	engine, result, err := core.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if spinner != nil {
		_ = spinner.Finish()
	}

	if globals.JSON {
		return output.JSON(result)
	}
	ui.Successf("Initialized %s: %d added, %d modified, %d deleted", workspace, result.Added, result.Modified, result.Deleted)
	return nil
}

// loadConfig resolves the config file honoring --config, falling back
// to config.Load's <workspace>/.cie/config.yaml default.
func loadConfig(workspace string, globals GlobalFlags) (core.Config, error) {
	if globals.ConfigPath != "" {
		return config.LoadFile(globals.ConfigPath, workspace)
	}
	return config.Load(workspace)
}
