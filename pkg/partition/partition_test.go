// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package partition

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/graph"
)

func buildGraph(t *testing.T, filesAndNodeCounts map[string]int) *graph.MemGraph {
	t.Helper()
	g := graph.NewMemGraph()
	for file, count := range filesAndNodeCounts {
		for i := 0; i < count; i++ {
			id := file + ":n" + itoa(i)
			require.NoError(t, g.AddNode(graph.Node{ID: id, Name: id, Type: graph.NodeCallable, File: file}))
		}
	}
	return g
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestPartitioner_GroupsByTopDirWhenUnderBudget(t *testing.T) {
	g := buildGraph(t, map[string]int{
		"src/foo/a.go": 5,
		"src/foo/b.go": 5,
		"src/bar/c.go": 5,
	})
	planned := New(1000).Partition(g)
	require.Equal(t, "src/foo", planned.FileToPartition["src/foo/a.go"])
	require.Equal(t, "src/foo", planned.FileToPartition["src/foo/b.go"])
	require.Equal(t, "src/bar", planned.FileToPartition["src/bar/c.go"])
	require.Equal(t, 2, planned.Stats.PartitionCount)
}

func TestPartitioner_SubdividesOnOverflow(t *testing.T) {
	g := buildGraph(t, map[string]int{
		"src/foo/a.go": 60,
		"src/foo/b.go": 60,
		"src/bar/c.go": 10,
	})
	planned := New(100).Partition(g)
	require.NotEqual(t, planned.FileToPartition["src/foo/a.go"], planned.FileToPartition["src/foo/b.go"])
	require.Equal(t, "src/bar", planned.FileToPartition["src/bar/c.go"])
}

func TestPartitioner_SingleOverflowingFileBecomesOwnPartition(t *testing.T) {
	g := buildGraph(t, map[string]int{
		"src/foo/huge.go": 500,
	})
	planned := New(100).Partition(g)
	require.Equal(t, "src/foo/huge.go", planned.FileToPartition["src/foo/huge.go"])
}

func TestPartitioner_CrossPartitionEdgeBecomesCrossRef(t *testing.T) {
	g := graph.NewMemGraph()
	require.NoError(t, g.AddNode(graph.Node{ID: "src/foo/a.go:A", Name: "A", Type: graph.NodeCallable, File: "src/foo/a.go"}))
	require.NoError(t, g.AddNode(graph.Node{ID: "src/bar/b.go:B", Name: "B", Type: graph.NodeCallable, File: "src/bar/b.go"}))
	g.AddEdge(graph.Edge{Source: "src/foo/a.go:A", Target: "src/bar/b.go:B", Type: graph.EdgeUses, RefLine: 4})

	planned := New(1000).Partition(g)
	require.Len(t, planned.CrossRefs, 1)
	require.Equal(t, "src/foo", planned.CrossRefs[0].SourcePartition)
	require.Equal(t, "src/bar", planned.CrossRefs[0].TargetPartition)
}

func TestPartitionStore_UpsertAndDeleteFile(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPartition("src/foo", filepath.Join(dir, "src_foo.db"))
	require.NoError(t, err)
	defer p.Close()

	nodes := []graph.Node{
		{ID: "src/foo/a.go:A", Name: "A", Type: graph.NodeCallable, File: "src/foo/a.go", StartLine: 1, EndLine: 2},
		{ID: "src/foo/a.go:A:b", Name: "b", Type: graph.NodeData, Kind: "parameter", File: "src/foo/a.go", StartLine: 1, EndLine: 1},
	}
	edges := []graph.Edge{
		{Source: "src/foo/a.go:A", Target: "src/foo/a.go:A:b", Type: graph.EdgeContains},
	}
	require.NoError(t, p.Upsert("src/foo/a.go", nodes, edges))

	got, err := p.Nodes()
	require.NoError(t, err)
	require.Len(t, got, 2)

	gotEdges, err := p.Edges()
	require.NoError(t, err)
	require.Len(t, gotEdges, 1)

	require.NoError(t, p.DeleteFile("src/foo/a.go"))
	got, err = p.Nodes()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestManifest_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)

	m := NewManifest()
	m.Files["src/foo/a.go"] = "src/foo"
	m.Partitions["src/foo"] = "partitions/src_foo.db"
	require.NoError(t, m.Save(path))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "src/foo", loaded.Files["src/foo/a.go"])
	require.Equal(t, SchemaVersion, loaded.SchemaVersion)
}

func TestCrossRefStore_ReplaceAndQuery(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenCrossRefStore(filepath.Join(dir, CrossRefFileName))
	require.NoError(t, err)
	defer store.Close()

	refs := []CrossRef{
		{
			Edge:            graph.Edge{Source: "src/foo/a.go:A", Target: "src/bar/b.go:B", Type: graph.EdgeUses, RefLine: 3, Ident: "B"},
			SourcePartition: "src/foo",
			TargetPartition: "src/bar",
		},
	}
	require.NoError(t, store.Replace("src/foo/a.go", "src/foo", refs))

	out, err := store.EdgesFrom("src/foo/a.go:A")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "src/bar/b.go:B", out[0].Target)
}
