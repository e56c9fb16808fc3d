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

// runReadCode implements `cie read-code <id>`, per spec §6's
// `read_code(id, context_lines)`.
func runReadCode(ctx context.Context, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("read-code", flag.ContinueOnError)
	contextLines := fs.Int("context", 0, "Extra lines of context on either side of the node's span")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewConfigInvalidError("Missing id", "read-code requires a node id argument", "Run `cie read-code <id>`", nil)
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
	code, err := engine.ReadCode(ctx, id, *contextLines)
	if err != nil {
		return notFoundToUserError(err, id)
	}

	if globals.JSON {
		return output.JSON(struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		}{ID: id, Code: code})
	}
	fmt.Print(code)
	return nil
}
