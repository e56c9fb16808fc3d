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

// graphStatsResult is the JSON shape of `cie graph-stats`.
type graphStatsResult struct {
	Nodes map[string]int `json:"nodes"`
	Edges map[string]int `json:"edges"`
}

// runGraphStats implements `cie graph-stats`, per spec §6's `graph_stats()`.
func runGraphStats(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("graph-stats", flag.ContinueOnError)
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

	nodeCounts, edgeCounts, err := engine.GraphStats(ctx)
	if err != nil {
		return err
	}

	result := graphStatsResult{Nodes: make(map[string]int), Edges: make(map[string]int)}
	for t, n := range nodeCounts {
		result.Nodes[string(t)] = n
	}
	for t, n := range edgeCounts {
		result.Edges[string(t)] = n
	}

	if globals.JSON {
		return output.JSON(result)
	}
	fmt.Println("Nodes:")
	for t, n := range result.Nodes {
		fmt.Printf("  %-12s %d\n", t, n)
	}
	fmt.Println("Edges:")
	for t, n := range result.Edges {
		fmt.Printf("  %-12s %d\n", t, n)
	}
	return nil
}
