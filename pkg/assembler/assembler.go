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

// Package assembler implements C2: turning per-file capture records plus
// manifest records into a typed in-memory graph satisfying the data
// model invariants of spec.md §3.
//
// This generalizes the teacher's hashed-id scheme (pkg/ingestion/ids.go,
// GenerateFileID/GenerateFunctionID) into the spec's deliberately
// human-readable, colon-delimited containment path id (spec.md §9,
// "Hierarchical node ids as a flattened string" — ids must stay stable
// and prefix-matchable for partition routing, which a content hash is
// not). Reference resolution keeps the teacher's tiered strategy from
// pkg/ingestion/resolver.go (nearest scope, then file, then sibling
// files of a component) but resolves against node ids built from the
// capture containment path instead of a package-import index.
package assembler

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/opencie/cie/pkg/extract"
	"github.com/opencie/cie/pkg/graph"
)

// FileCapture bundles one file's extracted captures with its content
// hash, as produced by the Merkle tracker (C3).
type FileCapture struct {
	Path     string
	Hash     string
	Captures []extract.Capture
}

// Diagnostics counts events that do not fail assembly but are useful for
// operators: unresolved references are dropped silently per spec.md §3
// but counted here.
type Diagnostics struct {
	UnresolvedRefs   int
	UnresolvedDeps   int
	DisambiguatedIDs int
}

type pendingRef struct {
	sourceID   string
	sourceFile string
	scopePath  []extract.PathSegment
	ident      string
	line       int
}

// Assembler builds a graph.MemGraph from capture records across many
// files in a single repository.
type Assembler struct{}

// New returns an Assembler.
func New() *Assembler { return &Assembler{} }

// Assemble implements the four-step algorithm of spec.md §4.2.
func (a *Assembler) Assemble(repoRoot string, files []FileCapture) (*graph.MemGraph, Diagnostics, error) {
	g := graph.NewMemGraph()
	var diag Diagnostics

	// Per-file name -> node id index, used for reference resolution
	// tiers 2 (file scope) and 3 (sibling files).
	fileIndex := make(map[string]map[string]string) // file -> name -> id
	// Repo-relative top directory -> file list, approximating a
	// "component" for tier 3 (sibling files) resolution.
	componentFiles := make(map[string][]string)

	var pending []pendingRef
	var componentCaptures []FileCapture // files whose first capture is a manifest component

	// Root node.
	repoID := repoRoot
	if repoID == "" {
		repoID = "."
	}
	if err := g.AddNode(graph.Node{ID: repoID, Name: path.Base(repoID), Type: graph.NodeRepository, File: repoID}); err != nil {
		return nil, diag, err
	}

	// Step 1 & 2: file nodes + definition captures.
	for _, fc := range files {
		if isManifestFile(fc.Captures) {
			componentCaptures = append(componentCaptures, fc)
		}

		if err := g.AddNode(graph.Node{
			ID:   fc.Path,
			Name: path.Base(fc.Path),
			Type: graph.NodeContainer,
			Kind: "file",
			File: fc.Path,
			Hash: fc.Hash,
		}); err != nil {
			return nil, diag, err
		}
		g.AddEdge(graph.Edge{Source: repoID, Target: fc.Path, Type: graph.EdgeContains})

		fileIndex[fc.Path] = make(map[string]string)
		componentFiles[topDir(fc.Path)] = append(componentFiles[topDir(fc.Path)], fc.Path)

		seen := make(map[string]int) // node id -> next disambiguator
		for _, cap := range fc.Captures {
			if cap.DefOrRef != extract.CaptureDef || cap.Kind == "component" || cap.Kind == "dependency" {
				continue
			}
			names := make([]string, len(cap.Path))
			for i, seg := range cap.Path {
				names[i] = seg.Name
			}
			id := graph.JoinID(fc.Path, names...)
			if n, exists := seen[id]; exists {
				seen[id] = n + 1
				id = id + "#" + strconv.Itoa(n+1)
				diag.DisambiguatedIDs++
			} else {
				seen[id] = 1
			}

			node := graph.Node{
				ID:        id,
				Name:      cap.Name,
				Type:      cap.NodeType,
				Kind:      cap.Kind,
				Subtype:   cap.Subtype,
				File:      fc.Path,
				StartLine: cap.LineStart,
				EndLine:   cap.LineEnd,
			}
			if err := g.AddNode(node); err != nil {
				return nil, diag, err
			}
			fileIndex[fc.Path][cap.Name] = id

			// Contains edge from the immediate parent in the
			// containment chain (file if top-level, else the node one
			// level up).
			parentID := fc.Path
			if len(cap.Path) > 1 {
				parentNames := names[:len(names)-1]
				parentID = graph.JoinID(fc.Path, parentNames...)
			}
			g.AddEdge(graph.Edge{Source: parentID, Target: id, Type: graph.EdgeContains})

			// Field declarations additionally get a Defines edge from
			// their owning type, distinct from containment (spec.md §3).
			if cap.Kind == "field" && len(cap.Path) >= 2 {
				ownerNames := names[:len(names)-1]
				ownerID := graph.JoinID(fc.Path, ownerNames...)
				g.AddEdge(graph.Edge{Source: ownerID, Target: id, Type: graph.EdgeDefines})
			}
		}

		// Step 3 (buffer phase): collect reference captures for the
		// second pass below.
		for _, cap := range fc.Captures {
			if cap.DefOrRef != extract.CaptureRef {
				continue
			}
			names := make([]string, len(cap.Path))
			for i, seg := range cap.Path {
				names[i] = seg.Name
			}
			sourceID := fc.Path
			if len(names) > 0 {
				sourceID = graph.JoinID(fc.Path, names...)
			}
			pending = append(pending, pendingRef{
				sourceID:   sourceID,
				sourceFile: fc.Path,
				scopePath:  cap.Path,
				ident:      cap.Ident,
				line:       cap.LineStart,
			})
		}
	}

	// Step 3 (resolve phase): nearest enclosing scope -> file scope ->
	// sibling files in the same component.
	for _, ref := range pending {
		targetID, ok := resolveReference(g, fileIndex, componentFiles, ref)
		if !ok {
			diag.UnresolvedRefs++
			continue
		}
		g.AddEdge(graph.Edge{
			Source:  ref.sourceID,
			Target:  targetID,
			Type:    graph.EdgeUses,
			RefLine: ref.line,
			Ident:   ref.ident,
		})
	}

	// Step 4: manifest files attach a component container and DependsOn
	// edges, resolved only against components known in this workspace.
	componentIDByName := make(map[string]string)
	for _, fc := range componentCaptures {
		for _, cap := range fc.Captures {
			if cap.Kind == "component" {
				componentIDByName[cap.Name] = "component:" + cap.Name
			}
		}
	}
	for _, fc := range componentCaptures {
		dir := path.Dir(fc.Path)
		if dir == "." {
			// A manifest at the repo root owns every file directly under
			// it, but path.Dir returns "." there, which no real file
			// path has as a literal prefix.
			dir = ""
		}
		var componentName, componentID string
		var deps []extract.Capture
		for _, cap := range fc.Captures {
			if cap.Kind == "component" {
				componentName = cap.Name
				componentID = "component:" + componentName
			} else if cap.Kind == "dependency" {
				deps = append(deps, cap)
			}
		}
		if componentID == "" {
			continue
		}
		if err := g.AddNode(graph.Node{
			ID:   componentID,
			Name: componentName,
			Type: graph.NodeContainer,
			Kind: "component",
			File: fc.Path,
		}); err != nil {
			return nil, diag, err
		}
		g.AddEdge(graph.Edge{Source: repoID, Target: componentID, Type: graph.EdgeContains})

		for _, f := range componentFiles[topDir(fc.Path)] {
			if strings.HasPrefix(f, dir) {
				g.AddEdge(graph.Edge{Source: componentID, Target: f, Type: graph.EdgeContains})
			}
		}

		for _, dep := range deps {
			targetID, ok := componentIDByName[dep.Ident]
			if !ok {
				diag.UnresolvedDeps++
				continue
			}
			g.AddEdge(graph.Edge{
				Source:          componentID,
				Target:          targetID,
				Type:            graph.EdgeDependsOn,
				Ident:           dep.Ident,
				VersionSpec:     dep.VersionSpec,
				IsDevDependency: dep.IsDevDependency,
			})
		}
	}

	return g, diag, nil
}

func isManifestFile(caps []extract.Capture) bool {
	return len(caps) > 0 && caps[0].Kind == "component"
}

func topDir(filePath string) string {
	parts := strings.SplitN(filePath, "/", 2)
	if len(parts) == 1 {
		return "."
	}
	return parts[0]
}

// resolveReference implements the three resolution tiers of spec.md
// §4.2 step 3: nearest enclosing scope, then file scope, then sibling
// files in the same component (approximated here as the top-level
// directory of the referencing file).
func resolveReference(g *graph.MemGraph, fileIndex map[string]map[string]string, componentFiles map[string][]string, ref pendingRef) (string, bool) {
	// Tier 1: nearest enclosing scope — walk the scope path from
	// innermost to outermost looking for a sibling definition with a
	// matching name (covers parameters/locals shadowing an outer name).
	for i := len(ref.scopePath); i > 0; i-- {
		names := make([]string, 0, i)
		for _, seg := range ref.scopePath[:i] {
			names = append(names, seg.Name)
		}
		candidate := graph.JoinID(ref.sourceFile, append(names, ref.ident)...)
		if g.HasNode(candidate) {
			return candidate, true
		}
	}

	// Tier 2: file scope.
	if id, ok := fileIndex[ref.sourceFile][ref.ident]; ok {
		return id, true
	}

	// Tier 3: sibling files in the same component, in deterministic
	// (sorted) path order so resolution is reproducible.
	siblings := append([]string{}, componentFiles[topDir(ref.sourceFile)]...)
	sort.Strings(siblings)
	for _, f := range siblings {
		if f == ref.sourceFile {
			continue
		}
		if id, ok := fileIndex[f][ref.ident]; ok {
			return id, true
		}
	}

	return "", false
}

