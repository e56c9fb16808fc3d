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
	"strings"

	"github.com/opencie/cie/internal/errors"
	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/core"
	"github.com/opencie/cie/pkg/search"
)

// runSearch implements `cie search <query>`, per spec §6's
// `search(q, limit, opts)`.
func runSearch(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "Maximum number of results")
	mode := fs.String("mode", "", "Search mode: semantic, code, or empty for hybrid")
	nodeTypes := fs.String("node-types", "", "Comma-separated node type filter")
	snippets := fs.Bool("snippets", false, "Include source snippets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing query", "search requires a query argument", "Run `cie search <query>`", nil)
	}
	query := strings.Join(fs.Args(), " ")

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

	opts := search.SearchOpts{
		Mode:            search.SearchMode(*mode),
		IncludeSnippets: *snippets,
	}
	if *nodeTypes != "" {
		opts.NodeTypes = strings.Split(*nodeTypes, ",")
	}

	hits, err := engine.Search(ctx, query, *limit, opts)
	if err != nil {
		return err
	}

	if globals.JSON {
		return output.JSON(hits)
	}
	if len(hits) == 0 {
		ui.Info("No results")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%s  %s:%d  %s  (%.3f, %s)\n", h.EntityID, h.FilePath, h.StartLine, h.Name, h.Score, strings.Join(h.Sources, "+"))
	}
	return nil
}
