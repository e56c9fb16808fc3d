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
	"fmt"
	"os"

	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/pkg/core"
)

// runIndexStatus implements `cie index-status`, per spec §6's
// `index_status()`.
func runIndexStatus(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("index-status", flag.ContinueOnError)
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
		return err
	}
	defer engine.Close()

	status, err := engine.IndexStatus(ctx)
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(status)
	}
	fmt.Printf("exists:  %t\n", status.Exists)
	fmt.Printf("semantic: %d entries\n", status.SemanticCount)
	fmt.Printf("code:     %d entries\n", status.CodeCount)
	fmt.Printf("schema:   %s\n", status.Version)
	return nil
}
