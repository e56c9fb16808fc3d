// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencie/cie/pkg/assembler"
	"github.com/opencie/cie/pkg/extract"
	"github.com/opencie/cie/pkg/graph"
	"github.com/opencie/cie/pkg/partition"
)

// SyncResult reports the file-level change counts of one sync pass, per
// spec §6's `sync(workspace)` signature.
type SyncResult struct {
	Added    int
	Modified int
	Deleted  int
}

// Init creates a brand-new store under workspace and runs the first
// sync pass, grounded on the teacher's InitProject (idempotent
// directory-and-schema bootstrap) generalized from a single CozoDB
// handle to this module's four durable stores (manifest, cross-refs,
// partitions, vector collections).
func Init(ctx context.Context, cfg Config) (*Engine, *SyncResult, error) {
	cfg.withDefaults()
	storeDir := filepath.Join(cfg.Workspace, storeRoot)

	cfg.Logger.Info("core.init.start", "workspace", cfg.Workspace, "repo_id", cfg.RepoID)

	if err := os.MkdirAll(filepath.Join(storeDir, "partitions"), 0o755); err != nil {
		return nil, nil, fmt.Errorf("core: create store dir: %w", err)
	}

	if _, err := partition.LoadManifest(filepath.Join(storeDir, partition.ManifestFileName)); err != nil {
		return nil, nil, fmt.Errorf("core: init manifest: %w", err)
	}

	e, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	result, err := e.Sync(ctx)
	if err != nil {
		e.Close()
		return nil, nil, err
	}

	cfg.Logger.Info("core.init.success", "workspace", cfg.Workspace,
		"added", result.Added, "modified", result.Modified, "deleted", result.Deleted)
	return e, result, nil
}

// Sync implements the orchestration sequence of spec §4.7: diff the
// workspace against the last snapshot, and — when anything changed —
// re-extract every tracked file, reassemble the graph, re-partition it,
// and reindex the vector collections. Reference resolution (C2) is a
// whole-repository computation (nearest-scope, then file, then sibling
// files of a component), so an Open Question this module resolves is:
// rather than patch individual partitions from a per-file diff, a
// changed workspace triggers a full re-extract + re-assemble +
// re-partition pass; the Merkle diff still exists to make a no-op sync
// cheap (an unchanged root hash short-circuits before any of that
// work), and still reports the per-file change counts callers expect.
func (e *Engine) Sync(ctx context.Context) (*SyncResult, error) {
	cs, err := e.merkleMgr.Sync()
	if err != nil {
		return nil, fmt.Errorf("core: merkle sync: %w", err)
	}
	result := &SyncResult{Added: len(cs.Added), Modified: len(cs.Modified), Deleted: len(cs.Deleted)}

	if cs.Empty() {
		e.logger.Info("core.sync.noop", "repo_id", e.cfg.RepoID)
		return result, nil
	}

	snap, err := e.merkleMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("core: reload snapshot: %w", err)
	}

	registry := extract.NewRegistry()
	registry.Register(".go", extract.NewGoExtractor(e.logger))
	registry.Register(".mod", extract.NewGoModExtractor())

	files := make([]assembler.FileCapture, 0, len(snap.Files))
	for relPath, hash := range snap.Files {
		ext := filepath.Ext(relPath)
		ex := registry.For(ext)
		if ex == nil {
			continue
		}
		content, readErr := os.ReadFile(filepath.Join(e.cfg.Workspace, relPath))
		if readErr != nil {
			e.logger.Warn("core.sync.unreadable", "file", relPath, "error", readErr)
			continue
		}
		caps, extractErr := ex.Extract(content, relPath)
		if extractErr != nil {
			e.logger.Warn("core.sync.extract_failed", "file", relPath, "error", extractErr)
			continue
		}
		files = append(files, assembler.FileCapture{Path: relPath, Hash: string(hash), Captures: caps})
	}

	g, diag, err := assembler.New().Assemble(e.cfg.Workspace, files)
	if err != nil {
		return nil, fmt.Errorf("core: assemble graph: %w", err)
	}
	e.logger.Info("core.sync.assembled", "repo_id", e.cfg.RepoID,
		"nodes", g.NodeCount(), "unresolved_refs", diag.UnresolvedRefs, "unresolved_deps", diag.UnresolvedDeps)

	planned := partition.New(e.cfg.MaxPartitionNodes).Partition(g)

	newManifest := partition.NewManifest()
	for file, pid := range planned.FileToPartition {
		newManifest.Files[file] = pid
	}
	for pid := range planned.NodesByPartition {
		newManifest.Partitions[pid] = pid + ".db"
	}

	// A sync that changed anything re-derives the complete partition set
	// and cross-ref set from every live file (see the full-rebuild note
	// above), so deleted files and files that moved to a different
	// partition must not leave stale rows behind: wipe both stores
	// before re-writing rather than patching only the files Assemble
	// still knows about (spec.md Testable Property #8, delete_cascade).
	partitionsDir := filepath.Join(e.storeDir, "partitions")
	if rmErr := os.RemoveAll(partitionsDir); rmErr != nil {
		return nil, fmt.Errorf("core: clear partitions dir: %w", rmErr)
	}
	if mkErr := os.MkdirAll(partitionsDir, 0o755); mkErr != nil {
		return nil, fmt.Errorf("core: recreate partitions dir: %w", mkErr)
	}
	if truncErr := e.crossRefs.TruncateAll(); truncErr != nil {
		return nil, fmt.Errorf("core: clear cross-ref store: %w", truncErr)
	}

	for pid, nodes := range planned.NodesByPartition {
		path := filepath.Join(partitionsDir, pid+".db")
		p, openErr := partition.OpenPartition(pid, path)
		if openErr != nil {
			return nil, fmt.Errorf("core: open partition %s: %w", pid, openErr)
		}
		byFile := groupNodesByFile(nodes)
		edgesByFile := groupEdgesByFile(planned.EdgesByPartition[pid], byFile)
		for file, fileNodes := range byFile {
			if writeErr := p.Upsert(file, fileNodes, edgesByFile[file]); writeErr != nil {
				p.Close()
				return nil, fmt.Errorf("core: write partition %s file %s: %w", pid, file, writeErr)
			}
		}
		p.Close()
	}

	crossRefsByFile := make(map[string][]partition.CrossRef)
	for _, cr := range planned.CrossRefs {
		file := graph.FileOf(cr.Source)
		crossRefsByFile[file] = append(crossRefsByFile[file], cr)
	}
	for file, refs := range crossRefsByFile {
		pid := planned.FileToPartition[file]
		if replaceErr := e.crossRefs.Replace(file, pid, refs); replaceErr != nil {
			return nil, fmt.Errorf("core: replace cross-refs for %s: %w", file, replaceErr)
		}
	}

	if saveErr := newManifest.Save(filepath.Join(e.storeDir, partition.ManifestFileName)); saveErr != nil {
		return nil, fmt.Errorf("core: save manifest: %w", saveErr)
	}
	*e.manifest = *newManifest
	e.source.manifest = newManifest
	e.lazyMgr.Reset()

	if reindexErr := e.indexer.Reindex(ctx, g.AllNodes()); reindexErr != nil {
		return nil, fmt.Errorf("core: reindex vector collections: %w", reindexErr)
	}

	e.logger.Info("core.sync.success", "repo_id", e.cfg.RepoID,
		"added", result.Added, "modified", result.Modified, "deleted", result.Deleted,
		"partitions", len(planned.NodesByPartition))
	return result, nil
}

func groupNodesByFile(nodes []graph.Node) map[string][]graph.Node {
	out := make(map[string][]graph.Node)
	for _, n := range nodes {
		out[n.File] = append(out[n.File], n)
	}
	return out
}

func groupEdgesByFile(edges []graph.Edge, byFile map[string][]graph.Node) map[string][]graph.Edge {
	fileOfNode := make(map[string]string)
	for file, nodes := range byFile {
		for _, n := range nodes {
			fileOfNode[n.ID] = file
		}
	}
	out := make(map[string][]graph.Edge)
	for _, e := range edges {
		if file, ok := fileOfNode[e.Source]; ok {
			out[file] = append(out[file], e)
		}
	}
	return out
}
