// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencie/cie/pkg/graph"
)

func TestBuildSemanticText_Deterministic(t *testing.T) {
	n := graph.Node{
		ID: "src/a.go:Foo", Name: "Foo", Type: graph.NodeCallable, Kind: "function",
		File: "src/a.go", StartLine: 10, EndLine: 20, Text: "func Foo() {}",
	}
	a := BuildSemanticText(n)
	b := BuildSemanticText(n)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "Foo")
	assert.Contains(t, a, "src/a.go")
}

func TestBuildSemanticText_IncludesParams(t *testing.T) {
	n := graph.Node{
		Name: "Foo", Type: graph.NodeCallable, Kind: "function", File: "a.go",
		Metadata: map[string]string{"params": "x int", "returns": "error"},
	}
	text := BuildSemanticText(n)
	assert.Contains(t, text, "Takes (x int)")
	assert.Contains(t, text, "returns error")
}

func TestBuildSemanticText_TruncatesLongSpans(t *testing.T) {
	long := make([]byte, maxSpanChars+200)
	for i := range long {
		long[i] = 'x'
	}
	n := graph.Node{Name: "Big", Type: graph.NodeCallable, File: "a.go", Text: string(long)}
	text := BuildSemanticText(n)
	assert.LessOrEqual(t, len(text)-len("Big")-60, maxSpanChars+1)
}

func TestBuildCodeText_FallsBackToSemanticWhenNoSpan(t *testing.T) {
	n := graph.Node{Name: "Pkg", Type: graph.NodeContainer, File: "pkg/foo"}
	text := BuildCodeText(n)
	assert.Equal(t, BuildSemanticText(n), text)
}

func TestBuildCodeText_UsesRawSpanWhenPresent(t *testing.T) {
	n := graph.Node{Name: "Foo", Type: graph.NodeCallable, File: "a.go", Text: "func Foo() { return }"}
	assert.Equal(t, "func Foo() { return }", BuildCodeText(n))
}
