// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the CIE CLI: a thin wrapper over pkg/core
// exposing spec.md §6's CORE-visible operations as subcommands. All
// graph/index logic lives in pkg/core; this package only parses flags,
// loads configuration, and formats results.
//
// Usage:
//
//	cie init                 Create the .cie store and run the first sync
//	cie sync                 Re-sync the workspace against the store
//	cie search <query>       Hybrid semantic+code search
//	cie get-node <id>        Fetch one node by id
//	cie neighbors <id>       List neighboring nodes
//	cie edges <id>           List incident edges
//	cie read-code <id>       Print a node's source span
//	cie find-nodes <pattern> Glob-match node names
//	cie graph-stats          Node/edge counts by type
//	cie index-status         Semantic/code index counts
//	cie health               Provider + store reachability check
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	internalerrors "github.com/opencie/cie/internal/errors"
	"github.com/opencie/cie/internal/logging"
	"github.com/opencie/cie/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .cie/config.yaml (default: <workspace>/.cie/config.yaml)")
		jsonOut     = flag.Bool("json", false, "Output machine-readable JSON")
		quiet       = flag.Bool("quiet", false, "Suppress progress and human-readable chrome")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Int("v", 0, "Verbosity (1 enables debug logging)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `CIE - Code Intelligence Engine CLI

Usage:
  cie <command> [options] [args]

Commands:
  init                Create the .cie store and run the first sync
  sync                Re-sync the workspace against the store
  search <query>      Hybrid semantic+code search
  get-node <id>       Fetch one node by id
  neighbors <id>      List neighboring nodes
  edges <id>          List incident edges
  read-code <id>      Print a node's source span
  find-nodes <glob>   Glob-match node names
  graph-stats         Node/edge counts by type
  index-status        Semantic/code index counts
  health              Provider + store reachability check

Global Options:
  --config     Path to .cie/config.yaml
  --json       Output machine-readable JSON
  --quiet      Suppress progress bars and chrome
  --no-color   Disable colored output
  -v           Verbosity (1 enables debug logging)
  --version    Show version and exit

Environment Variables:
  CIE_PROVIDER             Embedding provider (local, managed-endpoint, openai-compatible)
  CIE_STORE_URL            Provider endpoint URL
  CIE_REPO_ID              Repository identifier
  CIE_MEMORY_BUDGET_BYTES  Lazy-graph memory budget
  CIE_PROVIDER_BASE_URL    Embedding provider base URL

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cie version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{
		Quiet:      *quiet || *jsonOut,
		JSON:       *jsonOut,
		Verbose:    *verbose,
		NoColor:    *noColor,
		ConfigPath: *configPath,
	}

	ui.InitColors(globals.NoColor)
	logging.New(logging.Options{Debug: globals.Verbose > 0, JSON: globals.JSON})

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(int(internalerrors.ExitMisuse))
	}

	command := args[0]
	cmdArgs := args[1:]
	ctx := context.Background()

	var err error
	switch command {
	case "init":
		err = runInit(ctx, cmdArgs, globals)
	case "sync":
		err = runSync(ctx, cmdArgs, globals)
	case "search":
		err = runSearch(ctx, cmdArgs, globals)
	case "get-node":
		err = runGetNode(ctx, cmdArgs, globals)
	case "neighbors":
		err = runNeighbors(ctx, cmdArgs, globals)
	case "edges":
		err = runEdges(ctx, cmdArgs, globals)
	case "read-code":
		err = runReadCode(ctx, cmdArgs, globals)
	case "find-nodes":
		err = runFindNodes(ctx, cmdArgs, globals)
	case "graph-stats":
		err = runGraphStats(ctx, cmdArgs, globals)
	case "index-status":
		err = runIndexStatus(ctx, cmdArgs, globals)
	case "health":
		err = runHealth(ctx, cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(int(internalerrors.ExitMisuse))
	}

	if err != nil {
		internalerrors.FatalError(err, globals.JSON)
	}
}
