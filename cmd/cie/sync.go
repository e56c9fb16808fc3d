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

// runSync implements `cie sync`: re-syncs an already-initialized
// workspace against its store, per spec §6's `sync(workspace)`.
func runSync(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.Parse(args)

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
		return errors.NewIOError(
			"Workspace not initialized",
			err.Error(),
			"Run `cie init` first",
			err,
		)
	}
	defer engine.Close()

	sp := NewProgressConfig(globals)
	spinner := NewSpinner(sp, "Syncing")

	result, err := engine.Sync(ctx)
	if err != nil {
		return err
	}

	if spinner != nil {
		_ = spinner.Finish()
	}

	if globals.JSON {
		return output.JSON(result)
	}
	ui.Successf("Synced %s: %d added, %d modified, %d deleted", workspace, result.Added, result.Modified, result.Deleted)
	return nil
}
