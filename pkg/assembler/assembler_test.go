// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package assembler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/extract"
	"github.com/opencie/cie/pkg/graph"
)

func TestAssemble_ContainsChainAndCallResolution(t *testing.T) {
	files := []FileCapture{
		{
			Path: "sample.go",
			Hash: "deadbeef",
			Captures: []extract.Capture{
				{
					DefOrRef: extract.CaptureDef, NodeType: graph.NodeContainer, Kind: "type", Subtype: "struct",
					Name: "Greeter", LineStart: 3, LineEnd: 5,
					Path: []extract.PathSegment{{Kind: "type", Name: "Greeter"}},
				},
				{
					DefOrRef: extract.CaptureDef, NodeType: graph.NodeData, Kind: "field",
					Name: "Name", LineStart: 4, LineEnd: 4,
					Path: []extract.PathSegment{{Kind: "type", Name: "Greeter"}, {Kind: "field", Name: "Name"}},
				},
				{
					DefOrRef: extract.CaptureDef, NodeType: graph.NodeCallable, Kind: "method",
					Name: "Greet", LineStart: 7, LineEnd: 9,
					Path: []extract.PathSegment{{Kind: "type", Name: "Greeter"}, {Kind: "method", Name: "Greet"}},
				},
				{
					DefOrRef: extract.CaptureRef, NodeType: graph.NodeCallable, Kind: "call",
					Name: "hello", Ident: "hello", LineStart: 8, LineEnd: 8,
					Path: []extract.PathSegment{{Kind: "type", Name: "Greeter"}, {Kind: "method", Name: "Greet"}},
				},
				{
					DefOrRef: extract.CaptureDef, NodeType: graph.NodeCallable, Kind: "function",
					Name: "hello", LineStart: 11, LineEnd: 13,
					Path: []extract.PathSegment{{Kind: "function", Name: "hello"}},
				},
			},
		},
	}

	g, diag, err := New().Assemble("repo", files)
	require.NoError(t, err)
	require.Equal(t, 0, diag.UnresolvedRefs)

	typeID := "sample.go:Greeter"
	fieldID := "sample.go:Greeter:Name"
	methodID := "sample.go:Greeter:Greet"
	funcID := "sample.go:hello"

	require.True(t, g.HasNode(typeID))
	require.True(t, g.HasNode(fieldID))
	require.True(t, g.HasNode(methodID))
	require.True(t, g.HasNode(funcID))

	// file -> type is Contains
	containsFromFile := g.Neighbors("sample.go", graph.EdgeContains, graph.DirOutgoing)
	require.Contains(t, edgeTargets(containsFromFile), typeID)

	// type -> field is both Contains and Defines
	containsFromType := g.Neighbors(typeID, graph.EdgeContains, graph.DirOutgoing)
	require.Contains(t, edgeTargets(containsFromType), fieldID)
	definesFromType := g.Neighbors(typeID, graph.EdgeDefines, graph.DirOutgoing)
	require.Contains(t, edgeTargets(definesFromType), fieldID)

	// type -> method is Contains
	require.Contains(t, edgeTargets(containsFromType), methodID)

	// Greet -> hello resolved as Uses
	uses := g.Neighbors(methodID, graph.EdgeUses, graph.DirOutgoing)
	require.Len(t, uses, 1)
	require.Equal(t, funcID, uses[0].Target)
}

func TestAssemble_DisambiguatesDuplicateIDs(t *testing.T) {
	files := []FileCapture{
		{
			Path: "dup.go",
			Captures: []extract.Capture{
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeCallable, Kind: "function", Name: "init", Path: []extract.PathSegment{{Kind: "function", Name: "init"}}},
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeCallable, Kind: "function", Name: "init", Path: []extract.PathSegment{{Kind: "function", Name: "init"}}},
			},
		},
	}

	g, diag, err := New().Assemble("repo", files)
	require.NoError(t, err)
	require.Equal(t, 1, diag.DisambiguatedIDs)
	require.True(t, g.HasNode("dup.go:init"))
	require.True(t, g.HasNode("dup.go:init#2"))
}

func TestAssemble_ManifestDependsOn(t *testing.T) {
	files := []FileCapture{
		{
			Path: "go.mod",
			Captures: []extract.Capture{
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeContainer, Kind: "component", Name: "example.com/a"},
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeData, Kind: "dependency", Name: "example.com/b", Ident: "example.com/b", VersionSpec: "v1.0.0"},
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeData, Kind: "dependency", Name: "example.com/unknown", Ident: "example.com/unknown", VersionSpec: "v0.0.1"},
			},
		},
		{
			Path: "vendor/b/go.mod",
			Captures: []extract.Capture{
				{DefOrRef: extract.CaptureDef, NodeType: graph.NodeContainer, Kind: "component", Name: "example.com/b"},
			},
		},
	}

	g, diag, err := New().Assemble("repo", files)
	require.NoError(t, err)
	require.Equal(t, 1, diag.UnresolvedDeps)

	deps := g.Neighbors("component:example.com/a", graph.EdgeDependsOn, graph.DirOutgoing)
	require.Len(t, deps, 1)
	require.Equal(t, "component:example.com/b", deps[0].Target)
}

func edgeTargets(edges []graph.Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Target
	}
	return out
}
