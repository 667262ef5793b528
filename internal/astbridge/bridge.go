// Package astbridge lowers parsed Python syntax trees into Depyler HIR.
// The bridge is strict: every Python form maps to exactly one HIR variant,
// and unsupported forms fail with the offending construct named rather than
// producing HIR of guessed meaning.
package astbridge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/position"
	"github.com/depyler-lang/depyler/internal/pyparse"
)

// converter holds per-unit lowering state.
type converter struct {
	tree   *pyparse.Tree
	module *hir.Module
}

// ConvertSource parses Python source and lowers it to an HIR module.
func ConvertSource(ctx context.Context, filename string, src []byte) (*hir.Module, error) {
	tree, err := pyparse.Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}

	defer tree.Close()

	return Convert(tree)
}

// Convert lowers a parsed tree to an HIR module.
func Convert(tree *pyparse.Tree) (*hir.Module, error) {
	name := strings.TrimSuffix(filepath.Base(tree.Filename), ".py")

	c := &converter{
		tree:   tree,
		module: &hir.Module{Name: name, Filename: tree.Filename},
	}

	if err := c.convertModule(tree.Root); err != nil {
		return nil, err
	}

	return c.module, nil
}

func (c *converter) convertModule(root *sitter.Node) error {
	children := pyparse.NamedChildren(root)

	for i, n := range children {
		switch n.Type() {
		case "comment":
			continue

		case "function_definition":
			if _, err := c.convertFunction(n, nil, hir.InvalidClass); err != nil {
				return err
			}

		case "decorated_definition":
			if err := c.convertDecorated(n); err != nil {
				return err
			}

		case "class_definition":
			if _, err := c.convertClass(n, nil); err != nil {
				return err
			}

		case "import_statement", "import_from_statement":
			c.convertImport(n)

		case "expression_statement":
			// Module docstring, TypeVar declarations and type aliases are
			// meaningful; a trailing __main__ guard is tolerated and dropped.
			if i == 0 && c.isDocstring(n) {
				continue
			}

			if err := c.convertModuleLevelExpr(n); err != nil {
				return err
			}

		case "if_statement":
			if c.isMainGuard(n) {
				continue
			}

			return c.unsupported(n, "module-level if", "only `if __name__ == \"__main__\"` is allowed at module scope")

		default:
			return c.unsupported(n, n.Type(), "unsupported module-level statement")
		}
	}

	return nil
}

// convertModuleLevelExpr handles module-scope assignments: TypeVar
// declarations and type aliases. Anything else at module scope fails.
func (c *converter) convertModuleLevelExpr(n *sitter.Node) error {
	assign := pyparse.FirstChildOfType(n, "assignment")
	if assign == nil {
		return c.unsupported(n, "module-level expression", "expression statements are only allowed inside functions")
	}

	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")

	if left == nil || right == nil || left.Type() != "identifier" {
		return c.unsupported(n, "module-level assignment", "only simple name bindings are allowed at module scope")
	}

	name := c.tree.Text(left)

	// T = TypeVar("T")
	if right.Type() == "call" {
		if fn := right.ChildByFieldName("function"); fn != nil && c.tree.Text(fn) == "TypeVar" {
			c.module.TypeAliases = append(c.module.TypeAliases, hir.TypeAlias{
				Name:   name,
				Target: hir.TypeVar(name),
			})

			return nil
		}
	}

	// Name = sometype
	if ty, err := c.convertTypeExpr(right); err == nil {
		c.module.TypeAliases = append(c.module.TypeAliases, hir.TypeAlias{Name: name, Target: ty})

		return nil
	}

	return c.unsupported(n, "module-level assignment", "module-level values other than type aliases are not supported")
}

func (c *converter) convertImport(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		for _, child := range pyparse.NamedChildren(n) {
			switch child.Type() {
			case "dotted_name":
				c.module.Imports = append(c.module.Imports, hir.Import{Module: c.tree.Text(child)})
			case "aliased_import":
				mod := child.ChildByFieldName("name")
				alias := child.ChildByFieldName("alias")
				c.module.Imports = append(c.module.Imports, hir.Import{
					Module: c.tree.Text(mod),
					Alias:  c.tree.Text(alias),
				})
			}
		}

	case "import_from_statement":
		mod := n.ChildByFieldName("module_name")

		imp := hir.Import{Module: c.tree.Text(mod)}
		for _, child := range pyparse.NamedChildren(n) {
			if child == mod {
				continue
			}

			switch child.Type() {
			case "dotted_name", "identifier":
				imp.Names = append(imp.Names, c.tree.Text(child))
			case "aliased_import":
				if nm := child.ChildByFieldName("name"); nm != nil {
					imp.Names = append(imp.Names, c.tree.Text(nm))
				}
			}
		}

		c.module.Imports = append(c.module.Imports, imp)
	}
}

// isDocstring reports whether the statement is a bare string literal.
func (c *converter) isDocstring(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}

	return n.NamedChild(0).Type() == "string"
}

// isMainGuard matches `if __name__ == "__main__":` blocks.
func (c *converter) isMainGuard(n *sitter.Node) bool {
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return false
	}

	text := c.tree.Text(cond)

	return strings.Contains(text, "__name__") && strings.Contains(text, "__main__")
}

func (c *converter) span(n *sitter.Node) position.Span {
	return c.tree.Span(n)
}

// unsupported builds the bridge's UnsupportedConstruct failure.
func (c *converter) unsupported(n *sitter.Node, construct, message string) error {
	return diagnostics.Unsupported(c.span(n), construct, message)
}

func (c *converter) loweringErr(n *sitter.Node, format string, args ...any) error {
	return diagnostics.Lowering(c.span(n), fmt.Sprintf(format, args...))
}
