// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencie/cie/pkg/graph"
	"github.com/opencie/cie/pkg/partition"
)

// fileSource adapts the durable partition.Store layer to
// lazygraph.PartitionSource: opening a partition, reading its full
// node/edge set, estimating its resident byte cost from the on-disk
// file size, and closing it again (the lazygraph.Manager is the
// long-lived holder of hydrated state, not the SQLite handle itself).
type fileSource struct {
	dir      string
	manifest *partition.Manifest
}

func (s *fileSource) OpenPartition(ctx context.Context, pid string) ([]graph.Node, []graph.Edge, int64, error) {
	relpath, ok := s.manifest.Partitions[pid]
	if !ok {
		return nil, nil, 0, fmt.Errorf("core: unknown partition %q", pid)
	}
	path := filepath.Join(s.dir, relpath)

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("core: stat partition %s: %w", pid, err)
	}

	p, err := partition.OpenPartition(pid, path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer p.Close()

	nodes, err := p.Nodes()
	if err != nil {
		return nil, nil, 0, err
	}
	edges, err := p.Edges()
	if err != nil {
		return nil, nil, 0, err
	}
	return nodes, edges, info.Size(), nil
}
