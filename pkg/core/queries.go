// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/opencie/cie/pkg/graph"
)

// NotFoundError reports that an id or pattern named nothing resident in
// the store, per spec §7's NotFound error kind.
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return "not found: " + e.ID }

// GetNode implements spec §6's `get_node(id)`.
func (e *Engine) GetNode(ctx context.Context, id string) (graph.Node, error) {
	n, ok, err := e.lazyMgr.Node(ctx, id)
	if err != nil {
		return graph.Node{}, err
	}
	if !ok {
		return graph.Node{}, &NotFoundError{ID: id}
	}
	return n, nil
}

// Neighbors implements spec §6's `neighbors(id, edge_type?, direction)`,
// always expanding cross-partition stubs since the operation's contract
// promises nodes, not stubs.
func (e *Engine) Neighbors(ctx context.Context, id string, edgeType graph.EdgeType, dir graph.Direction) ([]graph.Node, error) {
	if _, ok, err := e.lazyMgr.Node(ctx, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, &NotFoundError{ID: id}
	}
	results, err := e.lazyMgr.Neighbors(ctx, id, edgeType, dir, true)
	if err != nil {
		return nil, err
	}
	nodes := make([]graph.Node, 0, len(results))
	for _, r := range results {
		nodes = append(nodes, r.Node)
	}
	return nodes, nil
}

// Edges implements spec §6's `edges(id, edge_type?, direction)`.
func (e *Engine) Edges(ctx context.Context, id string, edgeType graph.EdgeType, dir graph.Direction) ([]graph.Edge, error) {
	if _, ok, err := e.lazyMgr.Node(ctx, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, &NotFoundError{ID: id}
	}
	results, err := e.lazyMgr.Neighbors(ctx, id, edgeType, dir, false)
	if err != nil {
		return nil, err
	}
	edges := make([]graph.Edge, 0, len(results))
	for _, r := range results {
		edges = append(edges, r.Edge)
	}
	return edges, nil
}

// ReadCode implements spec §6's `read_code(id, context_lines)`: the
// node's span is re-read from the workspace file rather than served from
// Node.Text, which C1/C2 leave empty except where a capture explicitly
// populates it, and padded by contextLines on either side, per spec.md
// §4.2's Node.Text note ("optional, empty when not captured").
func (e *Engine) ReadCode(ctx context.Context, id string, contextLines int) (string, error) {
	n, ok, err := e.lazyMgr.Node(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &NotFoundError{ID: id}
	}

	path := filepath.Join(e.cfg.Workspace, n.File)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("core: read_code open %s: %w", n.File, err)
	}
	defer f.Close()

	start := n.StartLine - contextLines
	if start < 1 {
		start = 1
	}
	end := n.EndLine + contextLines

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		if line < start {
			continue
		}
		if end > 0 && line > end {
			break
		}
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return "", fmt.Errorf("core: read_code scan %s: %w", n.File, scanErr)
	}
	return sb.String(), nil
}

// FindNodes implements spec §6's `find_nodes(pattern, node_type?, limit)`,
// glob-matching against node names over every resident partition.
func (e *Engine) FindNodes(ctx context.Context, pattern string, nodeType graph.NodeType, limit int) ([]graph.Node, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("core: find_nodes compile pattern %q: %w", pattern, err)
	}

	var matches []graph.Node
	visitErr := e.lazyMgr.VisitAllNodes(ctx, func(n graph.Node) bool {
		if nodeType != "" && n.Type != nodeType {
			return true
		}
		if !g.Match(n.Name) {
			return true
		}
		matches = append(matches, n)
		return limit <= 0 || len(matches) < limit
	})
	if visitErr != nil {
		return nil, visitErr
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GraphStats implements spec §6's `graph_stats()`: counts per node_type
// come from a full node walk; counts per edge_type combine each loaded
// partition's intra-graph edges with the cross-ref store's inter-
// partition edges, since no single resident graph ever holds every edge
// at once (pkg/lazygraph's ownership model, spec.md §4.5).
func (e *Engine) GraphStats(ctx context.Context) (nodeCounts map[graph.NodeType]int, edgeCounts map[graph.EdgeType]int, err error) {
	nodeCounts = make(map[graph.NodeType]int)
	edgeCounts = make(map[graph.EdgeType]int)

	visitErr := e.lazyMgr.VisitAllNodes(ctx, func(n graph.Node) bool {
		nodeCounts[n.Type]++
		return true
	})
	if visitErr != nil {
		return nil, nil, visitErr
	}

	intra, err := e.lazyMgr.EdgeStats(ctx)
	if err != nil {
		return nil, nil, err
	}
	for et, n := range intra {
		edgeCounts[et] += n
	}

	cross, err := e.crossRefs.All()
	if err != nil {
		return nil, nil, fmt.Errorf("core: graph_stats cross-refs: %w", err)
	}
	for _, cr := range cross {
		edgeCounts[cr.Type]++
	}

	return nodeCounts, edgeCounts, nil
}

// IndexStatus implements spec §6's `index_status()`.
type IndexStatusResult struct {
	Exists        bool
	SemanticCount int
	CodeCount     int
	Version       string
}

func (e *Engine) IndexStatus(ctx context.Context) (IndexStatusResult, error) {
	semCount, err := e.semanticColl.Count(ctx, e.cfg.RepoID)
	if err != nil {
		return IndexStatusResult{}, fmt.Errorf("core: index_status semantic count: %w", err)
	}
	codeCount, err := e.codeColl.Count(ctx, e.cfg.RepoID)
	if err != nil {
		return IndexStatusResult{}, fmt.Errorf("core: index_status code count: %w", err)
	}
	return IndexStatusResult{
		Exists:        semCount > 0 || codeCount > 0,
		SemanticCount: semCount,
		CodeCount:     codeCount,
		Version:       e.manifest.SchemaVersion,
	}, nil
}

// Health implements spec §6's `health()`: true only when the embedding
// provider reports ready and the cross-ref store is still reachable.
func (e *Engine) Health(ctx context.Context) bool {
	status, err := e.provider.CheckStatus(ctx)
	if err != nil || !status.Ready {
		return false
	}
	if _, err := e.crossRefs.EdgesFrom(""); err != nil {
		return false
	}
	return true
}
