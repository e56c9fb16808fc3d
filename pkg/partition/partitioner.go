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

package partition

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencie/cie/pkg/graph"
)

// Planned is the output of Partitioner.Partition: a partition id per
// file plus the nodes/edges/cross-refs bucketed per that id, ready to be
// written with Partition.Upsert and CrossRefStore.Replace.
type Planned struct {
	FileToPartition map[string]string
	NodesByPartition map[string][]graph.Node
	EdgesByPartition map[string][]graph.Edge
	CrossRefs        []CrossRef
	Stats            PartitioningStats
}

// PartitioningStats reports the shape of a partitioning run, named after
// the original design's PartitioningStats.
type PartitioningStats struct {
	PartitionCount int
	MaxPartitionSize int
	CrossRefCount  int
}

// Partitioner splits an in-memory graph into directory-rooted partitions
// plus a cross-partition edge list, per spec.md §4.4.
type Partitioner struct {
	MaxPartitionNodes int
}

// New returns a Partitioner with the given per-partition node budget.
func New(maxPartitionNodes int) *Partitioner {
	if maxPartitionNodes <= 0 {
		maxPartitionNodes = 2000
	}
	return &Partitioner{MaxPartitionNodes: maxPartitionNodes}
}

// Partition assigns every node in g to a partition keyed by the
// top-level directory under the repository root (src/foo/a.go goes to
// partition src/foo; a file directly under src goes to src), subdividing by deeper
// directory levels when a candidate partition would exceed
// MaxPartitionNodes, and terminating the recursion at single-file
// partitions when even that overflows the budget.
func (p *Partitioner) Partition(g *graph.MemGraph) Planned {
	nodesByFile := make(map[string][]graph.Node)
	for _, n := range g.AllNodes() {
		nodesByFile[n.File] = append(nodesByFile[n.File], n)
	}

	files := make([]string, 0, len(nodesByFile))
	for f := range nodesByFile {
		files = append(files, f)
	}
	sort.Strings(files)

	fileToPartition := make(map[string]string)
	assignGroup(files, 0, p.MaxPartitionNodes, nodesByFile, fileToPartition)

	nodesByPartition := make(map[string][]graph.Node)
	for file, nodes := range nodesByFile {
		pid := fileToPartition[file]
		nodesByPartition[pid] = append(nodesByPartition[pid], nodes...)
	}

	inPartition := make(map[string]string, len(fileToPartition)) // node id -> pid
	for pid, nodes := range nodesByPartition {
		for _, n := range nodes {
			inPartition[n.ID] = pid
		}
	}

	edgesByPartition := make(map[string][]graph.Edge)
	var crossRefs []CrossRef
	seenEdges := make(map[string]bool)
	for _, n := range g.AllNodes() {
		for _, e := range g.Neighbors(n.ID, "", graph.DirOutgoing) {
			if seenEdges[e.Key()] {
				continue
			}
			seenEdges[e.Key()] = true
			srcPID, srcOK := inPartition[e.Source]
			dstPID, dstOK := inPartition[e.Target]
			if !srcOK || !dstOK {
				continue
			}
			if srcPID == dstPID {
				edgesByPartition[srcPID] = append(edgesByPartition[srcPID], e)
			} else {
				crossRefs = append(crossRefs, CrossRef{Edge: e, SourcePartition: srcPID, TargetPartition: dstPID})
			}
		}
	}

	maxSize := 0
	for _, nodes := range nodesByPartition {
		if len(nodes) > maxSize {
			maxSize = len(nodes)
		}
	}

	return Planned{
		FileToPartition:  fileToPartition,
		NodesByPartition: nodesByPartition,
		EdgesByPartition: edgesByPartition,
		CrossRefs:        crossRefs,
		Stats: PartitioningStats{
			PartitionCount:   len(nodesByPartition),
			MaxPartitionSize: maxSize,
			CrossRefCount:    len(crossRefs),
		},
	}
}

// assignGroup recursively buckets files by the directory component at
// depth, subdividing any bucket whose total node count exceeds maxNodes,
// until buckets fit the budget or bottom out at one file per partition.
func assignGroup(files []string, depth, maxNodes int, nodesByFile map[string][]graph.Node, out map[string]string) {
	if len(files) == 0 {
		return
	}

	buckets := make(map[string][]string)
	for _, f := range files {
		buckets[dirPrefix(f, depth)] = append(buckets[dirPrefix(f, depth)], f)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := buckets[key]
		total := 0
		for _, f := range members {
			total += len(nodesByFile[f])
		}

		if total <= maxNodes {
			for _, f := range members {
				out[f] = key
			}
			continue
		}
		if len(members) == 1 {
			// A single file still exceeds the budget on its own: the
			// recursion bottoms out here, per spec.md §4.4.
			out[members[0]] = members[0]
			continue
		}

		// The bucket is over budget and has more than one file:
		// subdivide by the next directory level. If subdividing
		// produces the exact same grouping (no deeper path segment
		// exists for any member), fall back to one partition per file.
		deeper := make(map[string][]string)
		for _, f := range members {
			deeper[dirPrefix(f, depth+1)] = append(deeper[dirPrefix(f, depth+1)], f)
		}
		if len(deeper) == 1 {
			for _, f := range members {
				out[f] = f
			}
			continue
		}
		assignGroup(members, depth+1, maxNodes, nodesByFile, out)
	}
}

// dirPrefix returns the directory path formed by the first depth+2
// path segments of file (depth 0 maps src/foo/a.go to src/foo), or the
// file's own directory if it has no more segments at that depth
// ("_root" for files at the repository root).
func dirPrefix(file string, depth int) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) == 1 {
		return "_root"
	}
	if len(parts) <= depth+2 {
		return strings.Join(parts[:len(parts)-1], "/")
	}
	return strings.Join(parts[:depth+2], "/")
}
