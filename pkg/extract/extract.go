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

// Package extract defines the tag-extractor contract (C1): the pure
// function that turns one source file's bytes into an ordered sequence
// of definition/reference captures, plus a real Go-language
// implementation on top of github.com/smacker/go-tree-sitter.
//
// The contract is intentionally narrow. Grammar machinery for languages
// beyond Go is out of scope (spec.md §1): callers may register any
// Extractor that satisfies this interface.
package extract

import "github.com/opencie/cie/pkg/graph"

// CaptureKind distinguishes a definition site from a reference site.
type CaptureKind string

const (
	CaptureDef CaptureKind = "def"
	CaptureRef CaptureKind = "ref"
)

// PathSegment is one (kind, name) hop in a capture's containment path,
// ordered from file root to the capture itself.
type PathSegment struct {
	Kind string
	Name string
}

// Capture is a single definition or reference record emitted for one
// source-file construct, in source order.
type Capture struct {
	DefOrRef  CaptureKind
	NodeType  graph.NodeType
	Kind      string
	Subtype   string
	Name      string
	ByteStart int
	ByteEnd   int
	LineStart int // 1-based, inclusive
	LineEnd   int // 1-based, inclusive
	Path      []PathSegment

	// Dependency fields. VersionSpec and IsDevDependency are populated
	// only for dependency captures emitted by a manifest extractor;
	// Ident is also set on reference captures, to the referenced name.
	Ident           string
	VersionSpec     string
	IsDevDependency bool
}

// Extractor is the C1 contract: a pure function per supported language
// that yields structured capture records for one file.
type Extractor interface {
	// Extract parses fileBytes (the contents of filePath) and returns
	// captures in source order. Implementations must be pure: identical
	// input bytes always yield identical captures.
	Extract(fileBytes []byte, filePath string) ([]Capture, error)
}

// Registry dispatches to a language-specific Extractor by file
// extension, matching the "per supported language" contract of
// spec.md §4.1.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// Register associates an Extractor with a file extension (including the
// leading dot, e.g. ".go").
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[ext] = e
}

// For returns the Extractor registered for ext, or nil if none.
func (r *Registry) For(ext string) Extractor {
	return r.byExt[ext]
}
