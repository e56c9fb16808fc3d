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

	"github.com/opencie/cie/internal/errors"
	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/core"
	"github.com/opencie/cie/pkg/graph"
)

// runFindNodes implements `cie find-nodes <pattern>`, per spec §6's
// `find_nodes(pattern, node_type?, limit)`.
func runFindNodes(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("find-nodes", flag.ContinueOnError)
	nodeType := fs.String("type", "", "Filter by node type (Workspace, Repository, Container, Callable, Data)")
	limit := fs.Int("limit", 50, "Maximum number of matches")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing pattern", "find-nodes requires a glob pattern argument", "Run `cie find-nodes <pattern>`", nil)
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

	nodes, err := engine.FindNodes(ctx, fs.Arg(0), graph.NodeType(*nodeType), *limit)
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(nodes)
	}
	if len(nodes) == 0 {
		ui.Info("No matches")
		return nil
	}
	for _, n := range nodes {
		fmt.Printf("%s  %s  %s:%d\n", n.ID, n.Type, n.File, n.StartLine)
	}
	return nil
}
