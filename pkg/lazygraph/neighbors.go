// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package lazygraph

import (
	"context"

	"github.com/opencie/cie/pkg/graph"
	"github.com/opencie/cie/pkg/partition"
)

type crossRef = partition.CrossRef

// NeighborResult is either a fully-resident node reached by an
// intra-graph or expanded cross-partition edge, or a stub carrying only
// enough to identify and later load the neighbor (spec.md §4.5 step 4).
type NeighborResult struct {
	Edge   graph.Edge
	Node   graph.Node
	Stub   bool
	Source string // partition id the neighbor belongs to, set for stubs
}

// Neighbors implements the neighbor-query algorithm of spec.md §4.5:
// load n's partition if needed, merge intra-graph edges with
// cross-partition edges from the cross-ref index, optionally expanding
// (loading) the neighbor's home partition, deduplicated by
// (source, target, edge_type, ref_line).
func (m *Manager) Neighbors(ctx context.Context, id string, edgeType graph.EdgeType, dir graph.Direction, expand bool) ([]NeighborResult, error) {
	pid, ok := m.manifest.PartitionOf(graph.FileOf(id))
	if ok {
		if err := m.LoadPartition(ctx, pid); err != nil {
			return nil, err
		}
	}

	if !m.acquireRead(ctx) {
		return nil, &BusyError{Op: "neighbors:" + id}
	}
	intra := m.g.Neighbors(id, edgeType, dir)
	var nodes []graph.Node
	for _, e := range intra {
		target := e.Target
		if dir == graph.DirIncoming {
			target = e.Source
		}
		if n, present := m.g.Node(target); present {
			nodes = append(nodes, n)
		}
	}
	m.mu.RUnlock()

	seen := make(map[string]bool, len(intra))
	var results []NeighborResult
	for i, e := range intra {
		seen[e.Key()] = true
		results = append(results, NeighborResult{Edge: e, Node: nodes[i]})
	}

	cross, err := m.crossPartitionEdges(id, edgeType, dir)
	if err != nil {
		return nil, err
	}
	for _, cr := range cross {
		if seen[cr.Edge.Key()] {
			continue
		}
		seen[cr.Edge.Key()] = true

		neighborID := cr.Target
		neighborPID := cr.TargetPartition
		if dir == graph.DirIncoming {
			neighborID = cr.Source
			neighborPID = cr.SourcePartition
		}

		if expand {
			if err := m.LoadPartition(ctx, neighborPID); err != nil {
				return nil, err
			}
			if !m.acquireRead(ctx) {
				return nil, &BusyError{Op: "neighbors:expand:" + id}
			}
			n, present := m.g.Node(neighborID)
			m.mu.RUnlock()
			if present {
				results = append(results, NeighborResult{Edge: cr.Edge, Node: n})
				continue
			}
		}

		results = append(results, NeighborResult{
			Edge:   cr.Edge,
			Node:   graph.Node{ID: neighborID, File: graph.FileOf(neighborID)},
			Stub:   true,
			Source: neighborPID,
		})
	}

	return results, nil
}

func (m *Manager) crossPartitionEdges(id string, edgeType graph.EdgeType, dir graph.Direction) ([]crossRef, error) {
	var out []crossRef
	if dir == graph.DirOutgoing || dir == graph.DirBoth {
		refs, err := m.crossRefs.EdgesFrom(id)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if edgeType == "" || r.Type == edgeType {
				out = append(out, crossRef(r))
			}
		}
	}
	if dir == graph.DirIncoming || dir == graph.DirBoth {
		refs, err := m.crossRefs.EdgesTo(id)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if edgeType == "" || r.Type == edgeType {
				out = append(out, crossRef(r))
			}
		}
	}
	return out, nil
}

// Subgraph implements the recursive k-hop traversal of spec.md §4.5,
// bounded by maxDepth and an explicit visited set.
type Subgraph struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

func (m *Manager) Subgraph(ctx context.Context, root string, maxDepth int, edgeType graph.EdgeType, dir graph.Direction) (*Subgraph, error) {
	visited := make(map[string]bool)
	sg := &Subgraph{}
	frontier := []string{root}
	visited[root] = true

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			results, err := m.Neighbors(ctx, id, edgeType, dir, true)
			if err != nil {
				return nil, err
			}
			for _, r := range results {
				sg.Edges = append(sg.Edges, r.Edge)
				if !r.Stub {
					sg.Nodes = append(sg.Nodes, r.Node)
				}
				neighborID := r.Node.ID
				if !visited[neighborID] {
					visited[neighborID] = true
					if !r.Stub {
						next = append(next, neighborID)
					}
				}
			}
		}
		frontier = next
	}
	return sg, nil
}
