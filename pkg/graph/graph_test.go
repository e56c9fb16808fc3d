// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileOf(t *testing.T) {
	require.Equal(t, "src/lib.go", FileOf("src/lib.go:MyType:Method"))
	require.Equal(t, "src/lib.go", FileOf("src/lib.go"))
}

func TestJoinID(t *testing.T) {
	require.Equal(t, "src/lib.go:MyType:Method", JoinID("src/lib.go", "MyType", "Method"))
}

func TestMemGraph_AddNodeCollision(t *testing.T) {
	g := NewMemGraph()
	require.NoError(t, g.AddNode(Node{ID: "a.go:Foo", File: "a.go"}))
	err := g.AddNode(Node{ID: "a.go:Foo", File: "b.go"})
	require.Error(t, err)
	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
}

func TestMemGraph_RemoveNodesWithFilePrefix_CascadesEdges(t *testing.T) {
	g := NewMemGraph()
	require.NoError(t, g.AddNode(Node{ID: "a.go", File: "a.go", Type: NodeContainer}))
	require.NoError(t, g.AddNode(Node{ID: "a.go:foo", File: "a.go", Type: NodeCallable}))
	require.NoError(t, g.AddNode(Node{ID: "b.go:bar", File: "b.go", Type: NodeCallable}))
	g.AddEdge(Edge{Source: "a.go", Target: "a.go:foo", Type: EdgeContains})
	g.AddEdge(Edge{Source: "a.go:foo", Target: "b.go:bar", Type: EdgeUses, Ident: "bar"})

	removed := g.RemoveNodesWithFilePrefix("a.go")
	require.ElementsMatch(t, []string{"a.go", "a.go:foo"}, removed)
	require.False(t, g.HasNode("a.go:foo"))
	require.True(t, g.HasNode("b.go:bar"))
	require.Empty(t, g.Neighbors("b.go:bar", EdgeUses, DirIncoming))
}

func TestMemGraph_Stats(t *testing.T) {
	g := NewMemGraph()
	require.NoError(t, g.AddNode(Node{ID: "a.go", File: "a.go", Type: NodeContainer}))
	require.NoError(t, g.AddNode(Node{ID: "a.go:foo", File: "a.go", Type: NodeCallable}))
	g.AddEdge(Edge{Source: "a.go", Target: "a.go:foo", Type: EdgeContains})

	nodeCounts, edgeCounts := g.Stats()
	require.Equal(t, 1, nodeCounts[NodeContainer])
	require.Equal(t, 1, nodeCounts[NodeCallable])
	require.Equal(t, 1, edgeCounts[EdgeContains])
}
