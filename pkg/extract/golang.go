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
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/opencie/cie/pkg/graph"
)

// GoExtractor implements Extractor for Go source using Tree-sitter.
// It is the one concrete, real tag extractor this module ships (spec.md
// §1 treats the grammar machinery as an upstream collaborator for every
// other language).
type GoExtractor struct {
	logger *slog.Logger
}

// NewGoExtractor returns a Go-language Extractor.
func NewGoExtractor(logger *slog.Logger) *GoExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoExtractor{logger: logger}
}

func (g *GoExtractor) Extract(fileBytes []byte, filePath string) ([]Capture, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		g.logger.Warn("extract.go.syntax_errors", "path", filePath)
	}

	w := &goWalker{content: fileBytes, filePath: filePath}
	w.walk(root, nil)
	return w.captures, nil
}

type goWalker struct {
	content  []byte
	filePath string
	captures []Capture
	// declared is neither populated nor read by the walker; same-file
	// reference resolution happens in the assembler.
	declared map[string]bool
}

func (w *goWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *goWalker) emit(kind CaptureKind, nodeType graph.NodeType, captureKind, subtype, name string, n *sitter.Node, path []PathSegment) {
	w.captures = append(w.captures, Capture{
		DefOrRef:  kind,
		NodeType:  nodeType,
		Kind:      captureKind,
		Subtype:   subtype,
		Name:      name,
		ByteStart: int(n.StartByte()),
		ByteEnd:   int(n.EndByte()),
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
		Path:      path,
	})
}

// walk recurses the AST, emitting def captures for declarations and ref
// captures for call expressions, carrying the containment path from the
// file root down to the current scope.
func (w *goWalker) walk(n *sitter.Node, scope []PathSegment) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "type_spec":
		w.emitTypeSpec(n, scope)
		// Don't recurse into fields/methods of the struct body here;
		// method declarations are top-level siblings in Go and are
		// walked independently below.
		return

	case "function_declaration":
		w.emitFunction(n, scope)
		return

	case "method_declaration":
		w.emitMethod(n, scope)
		return

	case "call_expression":
		w.emitCallRef(n, scope)
		// fall through to recurse into arguments for nested calls

	case "import_spec":
		// import tracking is handled at the assembler/manifest layer;
		// extraction only records definitions and references.
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), scope)
	}
}

func (w *goWalker) emitTypeSpec(n *sitter.Node, scope []PathSegment) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	subtype := w.typeSubtype(n.ChildByFieldName("type"))
	path := append(append([]PathSegment{}, scope...), PathSegment{Kind: "type", Name: name})
	w.emit(CaptureDef, graph.NodeContainer, "type", subtype, name, n, path)

	// Struct fields become Defines captures nested under the type.
	if typeNode := n.ChildByFieldName("type"); typeNode != nil && typeNode.Type() == "struct_type" {
		w.emitFields(typeNode, path)
	}
}

func (w *goWalker) typeSubtype(typeNode *sitter.Node) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "struct_type":
		return "struct"
	case "interface_type":
		return "interface"
	default:
		return "alias"
	}
}

func (w *goWalker) emitFields(structNode *sitter.Node, parentPath []PathSegment) {
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() != "field_declaration" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := w.text(nameNode)
		path := append(append([]PathSegment{}, parentPath...), PathSegment{Kind: "field", Name: name})
		w.emit(CaptureDef, graph.NodeData, "field", "", name, child, path)
	}
}

func (w *goWalker) emitFunction(n *sitter.Node, scope []PathSegment) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	path := append(append([]PathSegment{}, scope...), PathSegment{Kind: "function", Name: name})
	w.emit(CaptureDef, graph.NodeCallable, "function", "", name, n, path)
	w.emitParams(n, path)

	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body, path)
	}
}

func (w *goWalker) emitMethod(n *sitter.Node, scope []PathSegment) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	receiverType := w.receiverTypeName(n.ChildByFieldName("receiver"))

	// Methods nest under their receiver type's containment path so a
	// Contains edge links type -> method, matching the data model's
	// "type -> method" containment example.
	var path []PathSegment
	if receiverType != "" {
		path = append(append([]PathSegment{}, scope...), PathSegment{Kind: "type", Name: receiverType}, PathSegment{Kind: "method", Name: name})
	} else {
		path = append(append([]PathSegment{}, scope...), PathSegment{Kind: "method", Name: name})
	}
	w.emit(CaptureDef, graph.NodeCallable, "method", "", name, n, path)
	w.emitParams(n, path)

	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body, path)
	}
}

func (w *goWalker) emitParams(fnNode *sitter.Node, scope []PathSegment) {
	paramsNode := fnNode.ChildByFieldName("parameters")
	if paramsNode == nil {
		return
	}
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := w.text(nameNode)
		path := append(append([]PathSegment{}, scope...), PathSegment{Kind: "parameter", Name: name})
		w.emit(CaptureDef, graph.NodeData, "parameter", "", name, child, path)
	}
}

func (w *goWalker) receiverTypeName(receiverNode *sitter.Node) string {
	if receiverNode == nil {
		return ""
	}
	// receiver is a parameter_list containing one parameter_declaration
	// whose type is either `T` or `*T`.
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Type() == "pointer_type" {
			if inner := typeNode.ChildByFieldName("type"); inner != nil {
				return w.text(inner)
			}
		}
		return w.text(typeNode)
	}
	return ""
}

func (w *goWalker) emitCallRef(n *sitter.Node, scope []PathSegment) {
	funcNode := n.ChildByFieldName("function")
	if funcNode == nil {
		return
	}
	name := w.calleeName(funcNode)
	if name == "" {
		return
	}
	line := int(n.StartPoint().Row) + 1
	w.captures = append(w.captures, Capture{
		DefOrRef:  CaptureRef,
		NodeType:  graph.NodeCallable,
		Kind:      "call",
		Name:      name,
		ByteStart: int(n.StartByte()),
		ByteEnd:   int(n.EndByte()),
		LineStart: line,
		LineEnd:   line,
		Path:      append([]PathSegment{}, scope...),
		Ident:     name,
	})
}

// calleeName extracts the referenced identifier from a call expression's
// function operand: a bare identifier ("foo") or the rightmost field of
// a selector expression ("pkg.Foo" / "obj.Method" -> "Foo"/"Method").
func (w *goWalker) calleeName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return w.text(n)
	case "selector_expression":
		if field := n.ChildByFieldName("field"); field != nil {
			return w.text(field)
		}
	case "index_expression":
		if operand := n.ChildByFieldName("operand"); operand != nil {
			return w.calleeName(operand)
		}
	}
	return ""
}

var _ Extractor = (*GoExtractor)(nil)
