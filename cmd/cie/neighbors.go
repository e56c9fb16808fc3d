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

// runNeighbors implements `cie neighbors <id>`, per spec §6's
// `neighbors(id, edge_type?, direction)`.
func runNeighbors(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("neighbors", flag.ContinueOnError)
	edgeType := fs.String("edge-type", "", "Filter by edge type (Contains, Defines, Uses, DependsOn)")
	direction := fs.String("direction", "outgoing", "outgoing, incoming, or both")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing id", "neighbors requires a node id argument", "Run `cie neighbors <id>`", nil)
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

	id := fs.Arg(0)
	nodes, err := engine.Neighbors(ctx, id, graph.EdgeType(*edgeType), graph.Direction(*direction))
	if err != nil {
		return notFoundToUserError(err, id)
	}

	if globals.JSON {
		return output.JSON(nodes)
	}
	if len(nodes) == 0 {
		ui.Info("No neighbors")
		return nil
	}
	for _, n := range nodes {
		fmt.Printf("%s  %s  %s:%d\n", n.ID, n.Type, n.File, n.StartLine)
	}
	return nil
}
