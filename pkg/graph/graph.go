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

// Package graph defines the typed entity/edge data model shared by every
// CIE component: node and edge shapes, the four edge kinds, and the
// colon-delimited hierarchical id scheme that makes partition routing a
// prefix match.
package graph

import (
	"fmt"
	"strings"
)

// NodeType classifies an entity at the coarsest level.
type NodeType string

const (
	NodeWorkspace  NodeType = "Workspace"
	NodeRepository NodeType = "Repository"
	NodeContainer  NodeType = "Container"
	NodeCallable   NodeType = "Callable"
	NodeData       NodeType = "Data"
)

// EdgeType enumerates the four relationship kinds the graph supports.
type EdgeType string

const (
	EdgeContains   EdgeType = "Contains"
	EdgeDefines    EdgeType = "Defines"
	EdgeUses       EdgeType = "Uses"
	EdgeDependsOn  EdgeType = "DependsOn"
)

// Direction selects which end of an edge a traversal anchors on.
type Direction string

const (
	DirOutgoing Direction = "outgoing"
	DirIncoming Direction = "incoming"
	DirBoth     Direction = "both"
)

// Node is a single graph entity: a file, component, type, callable, or
// data slot. Node.ID is a stable, colon-delimited containment path
// (e.g. "src/lib.go:MyType:Method:param") that is globally unique within
// a repository and stable across runs for unchanged source.
type Node struct {
	ID        string
	Name      string
	Type      NodeType
	Kind      string
	Subtype   string
	File      string
	StartLine int
	EndLine   int
	Text      string // optional, empty when not captured
	Hash      string // set only on Container/file nodes
	Metadata  map[string]string
}

// Edge is a directed relationship between two node ids.
type Edge struct {
	Source          string
	Target          string
	Type            EdgeType
	RefLine         int    // meaningful for Uses; 0 otherwise
	Ident           string // meaningful for Uses/DependsOn
	VersionSpec     string // meaningful for DependsOn
	IsDevDependency bool   // meaningful for DependsOn
}

// Key returns the tuple that must be unique per invariant
// "(source, target, edge_type, ref_line) is unique".
func (e Edge) Key() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d", e.Source, e.Target, e.Type, e.RefLine)
}

// FileOf returns the leftmost colon-delimited segment of a node id, which
// is always the containing file's repo-relative path (Testable Property
// #1: a node's id parses back to its file as the leftmost segment).
func FileOf(id string) string {
	if idx := strings.Index(id, ":"); idx >= 0 {
		return id[:idx]
	}
	return id
}

// JoinID builds a hierarchical node id from a file path and a sequence of
// containment-path names, e.g. JoinID("src/a.go", "MyType", "Method").
func JoinID(file string, path ...string) string {
	parts := append([]string{file}, path...)
	return strings.Join(parts, ":")
}
