// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/graph"
)

const sampleGo = `package sample

type Greeter struct {
	Name string
}

func (g *Greeter) Greet() string {
	return hello(g.Name)
}

func hello(name string) string {
	return "hello " + name
}
`

func TestGoExtractor_Extract(t *testing.T) {
	e := NewGoExtractor(nil)
	caps, err := e.Extract([]byte(sampleGo), "sample.go")
	require.NoError(t, err)
	require.NotEmpty(t, caps)

	var sawType, sawField, sawMethod, sawFunc, sawCallHello bool
	for _, c := range caps {
		switch {
		case c.DefOrRef == CaptureDef && c.Kind == "type" && c.Name == "Greeter":
			sawType = true
			require.Equal(t, "struct", c.Subtype)
		case c.DefOrRef == CaptureDef && c.Kind == "field" && c.Name == "Name":
			sawField = true
		case c.DefOrRef == CaptureDef && c.Kind == "method" && c.Name == "Greet":
			sawMethod = true
			require.Equal(t, graph.NodeCallable, c.NodeType)
		case c.DefOrRef == CaptureDef && c.Kind == "function" && c.Name == "hello":
			sawFunc = true
		case c.DefOrRef == CaptureRef && c.Name == "hello":
			sawCallHello = true
		}
	}
	require.True(t, sawType, "expected a type capture for Greeter")
	require.True(t, sawField, "expected a field capture for Name")
	require.True(t, sawMethod, "expected a method capture for Greet")
	require.True(t, sawFunc, "expected a function capture for hello")
	require.True(t, sawCallHello, "expected a ref capture for the hello() call")
}

func TestGoModExtractor_Extract(t *testing.T) {
	content := []byte("module example.com/foo\n\ngo 1.24\n\nrequire (\n\tgithub.com/bar/baz v1.2.3\n\tgithub.com/qux v0.1.0 // indirect\n)\n")
	e := NewGoModExtractor()
	caps, err := e.Extract(content, "go.mod")
	require.NoError(t, err)
	require.Len(t, caps, 3) // component + 2 deps

	require.Equal(t, "component", caps[0].Kind)
	require.Equal(t, "example.com/foo", caps[0].Name)

	require.Equal(t, "github.com/bar/baz", caps[1].Ident)
	require.Equal(t, "v1.2.3", caps[1].VersionSpec)
}
