// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package lazygraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/graph"
	"github.com/opencie/cie/pkg/partition"
)

type fakeSource struct {
	partitions map[string]struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}
}

func (f *fakeSource) OpenPartition(ctx context.Context, pid string) ([]graph.Node, []graph.Edge, int64, error) {
	p := f.partitions[pid]
	return p.nodes, p.edges, p.bytes, nil
}

func newTestManager(t *testing.T, budget int64, minLoaded int) (*Manager, *fakeSource) {
	t.Helper()
	src := &fakeSource{partitions: make(map[string]struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	})}
	crossRefs, err := partition.OpenCrossRefStore(t.TempDir() + "/cross_refs")
	require.NoError(t, err)
	t.Cleanup(func() { crossRefs.Close() })

	manifest := partition.NewManifest()
	mgr := New(Config{BudgetBytes: budget, MinLoadedPartitions: minLoaded}, src, crossRefs, manifest, nil)
	return mgr, src
}

func TestLoadPartition_HydratesNodesAndEdges(t *testing.T) {
	mgr, src := newTestManager(t, 1<<20, 1)
	src.partitions["p1"] = struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}{
		nodes: []graph.Node{{ID: "a.go:A", Name: "A", Type: graph.NodeCallable, File: "a.go"}},
		edges: nil,
		bytes: 100,
	}

	require.NoError(t, mgr.LoadPartition(context.Background(), "p1"))
	require.True(t, mgr.g.HasNode("a.go:A"))
	require.Equal(t, int64(1), mgr.Stats().Loaded)
	require.Equal(t, int64(100), mgr.Stats().BytesInMemory)
}

func TestEnsureBudget_EvictsLRUButRespectsFloor(t *testing.T) {
	mgr, src := newTestManager(t, 150, 1)
	src.partitions["p1"] = struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}{nodes: []graph.Node{{ID: "a.go:A", Type: graph.NodeCallable, File: "a.go"}}, bytes: 100}
	src.partitions["p2"] = struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}{nodes: []graph.Node{{ID: "b.go:B", Type: graph.NodeCallable, File: "b.go"}}, bytes: 100}

	ctx := context.Background()
	require.NoError(t, mgr.LoadPartition(ctx, "p1"))
	require.NoError(t, mgr.LoadPartition(ctx, "p2"))

	// Budget is 150; two 100-byte partitions overflow it, but min_loaded=1
	// means loading p2 may evict p1.
	require.Equal(t, int64(1), mgr.Stats().Loaded)
	require.True(t, mgr.g.HasNode("b.go:B"))
	require.False(t, mgr.g.HasNode("a.go:A"))
	require.Equal(t, int64(1), mgr.Stats().Evictions)
}

func TestLoadPartition_CacheHitDoesNotReload(t *testing.T) {
	mgr, src := newTestManager(t, 1<<20, 1)
	src.partitions["p1"] = struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}{nodes: []graph.Node{{ID: "a.go:A", Type: graph.NodeCallable, File: "a.go"}}, bytes: 100}

	ctx := context.Background()
	require.NoError(t, mgr.LoadPartition(ctx, "p1"))
	require.NoError(t, mgr.LoadPartition(ctx, "p1"))
	require.Equal(t, int64(1), mgr.Stats().Hits)
	require.Equal(t, int64(1), mgr.Stats().Misses)
}

func TestNeighbors_MergesCrossPartitionStub(t *testing.T) {
	mgr, src := newTestManager(t, 1<<20, 2)
	src.partitions["src/foo"] = struct {
		nodes []graph.Node
		edges []graph.Edge
		bytes int64
	}{nodes: []graph.Node{{ID: "src/foo/a.go:A", Type: graph.NodeCallable, File: "src/foo/a.go"}}, bytes: 10}

	mgr.manifest.Files["src/foo/a.go"] = "src/foo"
	mgr.manifest.Files["src/bar/b.go"] = "src/bar"

	require.NoError(t, mgr.crossRefs.Replace("src/foo/a.go", "src/foo", []partition.CrossRef{
		{
			Edge:            graph.Edge{Source: "src/foo/a.go:A", Target: "src/bar/b.go:B", Type: graph.EdgeUses, RefLine: 3},
			SourcePartition: "src/foo",
			TargetPartition: "src/bar",
		},
	}))

	results, err := mgr.Neighbors(context.Background(), "src/foo/a.go:A", graph.EdgeUses, graph.DirOutgoing, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Stub)
	require.Equal(t, "src/bar/b.go:B", results[0].Node.ID)
	require.Equal(t, "src/bar", results[0].Source)
}
