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
	"github.com/opencie/cie/pkg/core"
)

// runGetNode implements `cie get-node <id>`, per spec §6's `get_node(id)`.
func runGetNode(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("get-node", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing id", "get-node requires a node id argument", "Run `cie get-node <id>`", nil)
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

	node, err := engine.GetNode(ctx, fs.Arg(0))
	if err != nil {
		return notFoundToUserError(err, fs.Arg(0))
	}

	if globals.JSON {
		return output.JSON(node)
	}
	fmt.Printf("%s  %s  %s:%d-%d  %s\n", node.ID, node.Type, node.File, node.StartLine, node.EndLine, node.Kind)
	return nil
}

// notFoundToUserError maps pkg/core's typed NotFoundError to a
// NotFound UserError (spec §7), leaving other errors untouched.
func notFoundToUserError(err error, id string) error {
	if _, ok := err.(*core.NotFoundError); ok {
		return errors.NewNotFoundError(
			"Node not found",
			fmt.Sprintf("no node with id %q is resident in the store", id),
			"Check the id with `cie find-nodes` or re-run `cie sync`",
		)
	}
	return err
}
