// Package pyparse wraps the tree-sitter Python grammar behind a small API
// tailored to the AST bridge: parse a source buffer, surface syntax errors
// with positions, and provide span/text helpers over syntax nodes.
package pyparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/depyler-lang/depyler/internal/position"
)

// ParseError reports Python source that will not parse.
type ParseError struct {
	Filename   string
	Line       int // 1-based
	Column     int // 1-based
	Detail     string
	SourceLine string // the offending line, when available
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s:%d:%d: syntax error: %s", e.Filename, e.Line, e.Column, e.Detail)
	if e.SourceLine != "" {
		msg += "\n  " + e.SourceLine
	}

	return msg
}

// Tree is a parsed Python source file. The underlying tree-sitter tree stays
// alive for the lifetime of the Tree so node pointers remain valid.
type Tree struct {
	Filename string
	Source   []byte
	File     *position.SourceFile
	Root     *sitter.Node
	tree     *sitter.Tree
}

// Parse parses Python source. A grammar-level syntax error is returned as a
// *ParseError pointing at the first ERROR or MISSING node.
func Parse(ctx context.Context, filename string, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	file := position.NewSourceFile(filename, string(src))

	root := tree.RootNode()
	if root.HasError() {
		bad := firstErrorNode(root)
		pt := bad.StartPoint()

		detail := "invalid syntax"
		if bad.IsMissing() {
			detail = fmt.Sprintf("missing %s", bad.Type())
		}

		return nil, &ParseError{
			Filename:   filename,
			Line:       int(pt.Row) + 1,
			Column:     int(pt.Column) + 1,
			Detail:     detail,
			SourceLine: file.GetLine(int(pt.Row) + 1),
		}
	}

	return &Tree{
		Filename: filename,
		Source:   src,
		File:     file,
		Root:     root,
		tree:     tree,
	}, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Text returns the source text covered by a node.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}

	return n.Content(t.Source)
}

// Span converts a node to a source span.
func (t *Tree) Span(n *sitter.Node) position.Span {
	if n == nil {
		return position.Span{}
	}

	sp := n.StartPoint()
	ep := n.EndPoint()

	return position.NewSpan(
		t.Filename,
		int(sp.Row), int(sp.Column), int(n.StartByte()),
		int(ep.Row), int(ep.Column), int(n.EndByte()),
	)
}

// NamedChildren returns all named children of a node in order.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}

	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)

	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}

	return out
}

// ChildrenOfType returns the named children with the given node type.
func ChildrenOfType(n *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node

	for _, c := range NamedChildren(n) {
		if c.Type() == nodeType {
			out = append(out, c)
		}
	}

	return out
}

// FirstChildOfType returns the first named child with the given type, or nil.
func FirstChildOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for _, c := range NamedChildren(n) {
		if c.Type() == nodeType {
			return c
		}
	}

	return nil
}

// firstErrorNode finds the first ERROR or MISSING node in document order.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}

		if c.HasError() || c.IsMissing() {
			return firstErrorNode(c)
		}
	}

	return n
}
