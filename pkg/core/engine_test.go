// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/graph"
	"github.com/opencie/cie/pkg/search"
)

func writeFixtureWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module fixture\n\ngo 1.22\n"), 0o644))

	a := `package fixture

func foo() int {
	return bar()
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(a), 0o644))

	b := `package fixture

func bar() int {
	return 1
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte(b), 0o644))

	return dir
}

func testConfig(workspace string) Config {
	return Config{
		Workspace: workspace,
		RepoID:    "fixture",
		Provider:  search.ProviderConfig{Type: search.ProviderLocal, Dim: 32},
	}
}

func TestInit_BuildsGraphAndIndex(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, result, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	require.Greater(t, result.Added, 0)

	status, err := e.IndexStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Exists)
	require.Greater(t, status.SemanticCount, 0)
	require.Greater(t, status.CodeCount, 0)
}

func TestInit_ThenOpen_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e1, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	e2, err := Open(testConfig(dir))
	require.NoError(t, err)
	defer e2.Close()

	result, err := e2.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, result.Added)
	require.Equal(t, 0, result.Modified)
	require.Equal(t, 0, result.Deleted)
}

func TestOpen_WithoutInit_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(testConfig(dir))
	require.Error(t, err)
}

func TestFindNodes_MatchesByGlobAndType(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	nodes, err := e.FindNodes(ctx, "fo*", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	for _, n := range nodes {
		require.Contains(t, n.Name, "fo")
	}

	nodes, err = e.FindNodes(ctx, "*", graph.NodeCallable, 1)
	require.NoError(t, err)
	require.LessOrEqual(t, len(nodes), 1)
}

func TestGetNode_UnknownIDReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.GetNode(ctx, "nonexistent:id")
	require.Error(t, err)
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestGraphStats_CountsNodesAndEdges(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	nodeCounts, edgeCounts, err := e.GraphStats(ctx)
	require.NoError(t, err)
	require.Greater(t, nodeCounts[graph.NodeCallable], 0)
	require.Greater(t, edgeCounts[graph.EdgeUses]+edgeCounts[graph.EdgeContains], 0)
}

func TestHealth_ReadyWhenProviderReady(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.Health(ctx))
}

func TestSearch_FindsIndexedFunction(t *testing.T) {
	ctx := context.Background()
	dir := writeFixtureWorkspace(t)

	e, _, err := Init(ctx, testConfig(dir))
	require.NoError(t, err)
	defer e.Close()

	hits, err := e.Search(ctx, "foo", 10, search.SearchOpts{Mode: search.ModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}
