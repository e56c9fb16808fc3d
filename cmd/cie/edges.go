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

// runEdges implements `cie edges <id>`, per spec §6's
// `edges(id, edge_type?, direction)`.
func runEdges(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("edges", flag.ContinueOnError)
	edgeType := fs.String("edge-type", "", "Filter by edge type (Contains, Defines, Uses, DependsOn)")
	direction := fs.String("direction", "outgoing", "outgoing, incoming, or both")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing id", "edges requires a node id argument", "Run `cie edges <id>`", nil)
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
	edges, err := engine.Edges(ctx, id, graph.EdgeType(*edgeType), graph.Direction(*direction))
	if err != nil {
		return notFoundToUserError(err, id)
	}

	if globals.JSON {
		return output.JSON(edges)
	}
	if len(edges) == 0 {
		ui.Info("No edges")
		return nil
	}
	for _, e := range edges {
		fmt.Printf("%s --%s--> %s\n", e.Source, e.Type, e.Target)
	}
	return nil
}
