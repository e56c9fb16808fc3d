// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"fmt"
	"strings"

	"github.com/opencie/cie/pkg/graph"
)

// maxSpanChars bounds how much of a callable's source span is folded
// into its semantic text, keeping the description within a modest
// token budget for the embedding model.
const maxSpanChars = 800

// BuildSemanticText deterministically constructs a plain-English
// description of a node per spec §4.6: identical input entities must
// produce identical text, so this touches nothing but n's own fields.
func BuildSemanticText(n graph.Node) string {
	var b strings.Builder

	kind := n.Kind
	if kind == "" {
		kind = string(n.Type)
	}
	fmt.Fprintf(&b, "%s %s in %s at lines %d-%d.", kind, n.Name, n.File, n.StartLine, n.EndLine)

	if sig := parameterSummary(n); sig != "" {
		b.WriteString(" ")
		b.WriteString(sig)
	}

	if n.Type == graph.NodeCallable && n.Text != "" {
		text := n.Text
		if len(text) > maxSpanChars {
			text = text[:maxSpanChars]
		}
		b.WriteString(" Source: ")
		b.WriteString(text)
	}

	return b.String()
}

// parameterSummary renders a one-sentence description of declared
// parameters and return signature when the node's metadata carries
// them under the "params" and "returns" keys. The assembler does not
// set these keys, so nodes it builds yield no such sentence.
func parameterSummary(n graph.Node) string {
	params := n.Metadata["params"]
	returns := n.Metadata["returns"]
	if params == "" && returns == "" {
		return ""
	}
	switch {
	case params != "" && returns != "":
		return fmt.Sprintf("Takes (%s) and returns %s.", params, returns)
	case params != "":
		return fmt.Sprintf("Takes (%s).", params)
	default:
		return fmt.Sprintf("Returns %s.", returns)
	}
}

// BuildCodeText is the code-collection's indexed content: the raw
// source span, falling back to the semantic text when a node carries
// no captured span (e.g. a Container/file node).
func BuildCodeText(n graph.Node) string {
	if n.Text != "" {
		return n.Text
	}
	return BuildSemanticText(n)
}
