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

package extract

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/opencie/cie/pkg/graph"
)

// requireLinePattern matches a single `require` line inside or outside
// a require(...) block: `modulepath v1.2.3` with an optional trailing
// `// indirect` comment.
var requireLinePattern = regexp.MustCompile(`^\s*([^\s(]+)\s+(v[0-9][^\s]*)\s*(// indirect)?\s*$`)

// GoModExtractor yields one Container/component capture plus one
// DependsOn capture per declared require line in a go.mod manifest, per
// spec.md §4.1's "for manifest files" rule.
type GoModExtractor struct{}

// NewGoModExtractor returns a manifest Extractor for go.mod files.
func NewGoModExtractor() *GoModExtractor { return &GoModExtractor{} }

func (m *GoModExtractor) Extract(fileBytes []byte, filePath string) ([]Capture, error) {
	moduleName := ""
	var caps []Capture

	scanner := bufio.NewScanner(bytes.NewReader(fileBytes))
	inRequireBlock := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "module "):
			moduleName = strings.TrimSpace(strings.TrimPrefix(trimmed, "module "))
		case trimmed == "require (":
			inRequireBlock = true
		case inRequireBlock && trimmed == ")":
			inRequireBlock = false
		case inRequireBlock || strings.HasPrefix(trimmed, "require "):
			candidate := strings.TrimPrefix(trimmed, "require ")
			if m := requireLinePattern.FindStringSubmatch(candidate); m != nil {
				caps = append(caps, Capture{
					DefOrRef:    CaptureDef,
					NodeType:    graph.NodeData,
					Kind:        "dependency",
					Name:        m[1],
					LineStart:   lineNo,
					LineEnd:     lineNo,
					Ident:       m[1],
					VersionSpec: m[2],
					// go.mod has no first-class dev-dependency concept;
					// "// indirect" is the closest analogue, but it is
					// not recorded anywhere and is not conflated with
					// IsDevDependency.
				})
			}
		}
	}

	if moduleName == "" {
		return caps, nil
	}

	component := Capture{
		DefOrRef:  CaptureDef,
		NodeType:  graph.NodeContainer,
		Kind:      "component",
		Name:      moduleName,
		LineStart: 1,
		LineEnd:   1,
		Path:      []PathSegment{{Kind: "component", Name: moduleName}},
	}
	return append([]Capture{component}, caps...), nil
}

var _ Extractor = (*GoModExtractor)(nil)
