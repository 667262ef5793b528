package astbridge

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/pyparse"
)

// decoratorAllowList names the decorators the bridge recognizes. Anything
// else fails fast rather than silently changing semantics.
var decoratorAllowList = map[string]bool{
	"staticmethod": true,
	"classmethod":  true,
	"property":     true,
	"dataclass":    true,
}

// convertDecorated handles decorated_definition wrapping a function or class.
func (c *converter) convertDecorated(n *sitter.Node) error {
	var decorators []string

	for _, d := range pyparse.ChildrenOfType(n, "decorator") {
		name := c.tree.Text(d)
		name = trimDecorator(name)

		if !decoratorAllowList[name] {
			return c.unsupported(d, "@"+name, "decorator is not in the recognized allow-list")
		}

		decorators = append(decorators, name)
	}

	if fn := pyparse.FirstChildOfType(n, "function_definition"); fn != nil {
		_, err := c.convertFunction(fn, decorators, hir.InvalidClass)

		return err
	}

	if cls := pyparse.FirstChildOfType(n, "class_definition"); cls != nil {
		_, err := c.convertClass(cls, decorators)

		return err
	}

	return c.unsupported(n, "decorated_definition", "decorator target must be a function or class")
}

func trimDecorator(text string) string {
	// "@dataclass" or "@dataclass(frozen=True)"
	name := text
	if len(name) > 0 && name[0] == '@' {
		name = name[1:]
	}

	for i := 0; i < len(name); i++ {
		if name[i] == '(' {
			return name[:i]
		}
	}

	return name
}

// convertFunction lowers one function definition into the module arena and
// returns its id.
func (c *converter) convertFunction(n *sitter.Node, decorators []string, class hir.ClassID) (hir.FunctionID, error) {
	name := c.tree.Text(n.ChildByFieldName("name"))

	fn := &hir.Function{
		Name:  name,
		Class: class,
		Span:  c.span(n),
	}

	for _, d := range decorators {
		switch d {
		case "classmethod":
			fn.Properties.IsClassMethod = true
		case "staticmethod":
			fn.Properties.IsStaticMethod = true
		default:
			fn.Properties.CustomAttributes = append(fn.Properties.CustomAttributes, d)
		}
	}

	// `async def` carries an anonymous "async" token before "def".
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); ch != nil && ch.Type() == "async" {
			fn.Properties.IsAsync = true

			break
		}
	}

	params, err := c.convertParameters(n.ChildByFieldName("parameters"), class, fn)
	if err != nil {
		return 0, err
	}

	fn.Params = params

	if ret := n.ChildByFieldName("return_type"); ret != nil {
		ty, err := c.convertTypeExpr(ret)
		if err != nil {
			return 0, err
		}

		fn.RetType = ty
	} else {
		fn.RetType = hir.Unknown()
	}

	body := n.ChildByFieldName("body")

	stmts := pyparse.NamedChildren(body)
	if len(stmts) > 0 && c.isDocstring(stmts[0]) {
		fn.Docstring = decodePyString(c.tree.Text(stmts[0].NamedChild(0)))
		stmts = stmts[1:]
	}

	lowered, err := c.convertBody(stmts, fn)
	if err != nil {
		return 0, err
	}

	fn.Body = lowered

	return c.module.AddFunction(fn), nil
}

// convertParameters lowers a parameter list. self/cls receivers are dropped
// from the HIR parameter list; the IsClassMethod property keeps the receiver
// behavior visible to the code generator.
func (c *converter) convertParameters(n *sitter.Node, class hir.ClassID, fn *hir.Function) ([]hir.Param, error) {
	if n == nil {
		return nil, nil
	}

	var params []hir.Param

	for _, p := range pyparse.NamedChildren(n) {
		switch p.Type() {
		case "identifier":
			name := c.tree.Text(p)
			if class != hir.InvalidClass && (name == "self" || name == "cls") && len(params) == 0 {
				continue
			}

			params = append(params, hir.Param{Name: name, Type: hir.Unknown()})

		case "typed_parameter":
			ident := pyparse.FirstChildOfType(p, "identifier")

			ty, err := c.convertTypeExpr(p.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}

			params = append(params, hir.Param{Name: c.tree.Text(ident), Type: ty})

		case "default_parameter":
			name := c.tree.Text(p.ChildByFieldName("name"))
			params = append(params, hir.Param{Name: name, Type: hir.Unknown()})

		case "typed_default_parameter":
			name := c.tree.Text(p.ChildByFieldName("name"))

			ty, err := c.convertTypeExpr(p.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}

			params = append(params, hir.Param{Name: name, Type: ty})

		case "list_splat_pattern":
			// *args: typed as a list of unknowns; the call-site lowering
			// consults the varargs set in the code generator.
			ident := pyparse.FirstChildOfType(p, "identifier")
			params = append(params, hir.Param{Name: c.tree.Text(ident), Type: hir.ListOf(hir.Unknown())})

			if fn != nil {
				fn.Annotations = setAnnotation(fn.Annotations, "varargs", c.tree.Text(ident))
			}

		case "dictionary_splat_pattern":
			return nil, c.unsupported(p, "**kwargs", "keyword splat parameters are not supported")

		default:
			return nil, c.unsupported(p, p.Type(), "unsupported parameter form")
		}
	}

	return params, nil
}

func setAnnotation(m map[string]string, key, value string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}

	m[key] = value

	return m
}

// convertClass lowers a class definition: field declarations and methods.
func (c *converter) convertClass(n *sitter.Node, decorators []string) (hir.ClassID, error) {
	cls := &hir.Class{
		Name: c.tree.Text(n.ChildByFieldName("name")),
		Span: c.span(n),
	}

	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for _, b := range pyparse.NamedChildren(sup) {
			cls.Bases = append(cls.Bases, c.tree.Text(b))
		}
	}

	id := c.module.AddClass(cls)

	body := n.ChildByFieldName("body")

	stmts := pyparse.NamedChildren(body)
	if len(stmts) > 0 && c.isDocstring(stmts[0]) {
		stmts = stmts[1:]
	}

	for _, s := range stmts {
		switch s.Type() {
		case "function_definition":
			fid, err := c.convertFunction(s, nil, id)
			if err != nil {
				return 0, err
			}

			cls.Methods = append(cls.Methods, fid)

		case "decorated_definition":
			var methodDecorators []string

			for _, d := range pyparse.ChildrenOfType(s, "decorator") {
				name := trimDecorator(c.tree.Text(d))
				if !decoratorAllowList[name] {
					return 0, c.unsupported(d, "@"+name, "decorator is not in the recognized allow-list")
				}

				methodDecorators = append(methodDecorators, name)
			}

			fn := pyparse.FirstChildOfType(s, "function_definition")
			if fn == nil {
				return 0, c.unsupported(s, "decorated_definition", "only decorated methods are supported in class bodies")
			}

			fid, err := c.convertFunction(fn, methodDecorators, id)
			if err != nil {
				return 0, err
			}

			cls.Methods = append(cls.Methods, fid)

		case "expression_statement":
			// Annotated field declaration: `x: int` or `x: int = 0`.
			field, err := c.convertClassField(s)
			if err != nil {
				return 0, err
			}

			if field != nil {
				cls.Fields = append(cls.Fields, *field)
			}

		case "pass_statement", "comment":
			// empty class body

		default:
			return 0, c.unsupported(s, s.Type(), "unsupported class body statement")
		}
	}

	return id, nil
}

func (c *converter) convertClassField(n *sitter.Node) (*hir.Field, error) {
	assign := pyparse.FirstChildOfType(n, "assignment")
	if assign == nil {
		return nil, c.unsupported(n, "class body expression", "class bodies may contain fields and methods only")
	}

	left := assign.ChildByFieldName("left")

	tyNode := assign.ChildByFieldName("type")
	if left == nil || left.Type() != "identifier" || tyNode == nil {
		return nil, c.unsupported(n, "class field", "fields must be declared as `name: type`")
	}

	ty, err := c.convertTypeExpr(tyNode)
	if err != nil {
		return nil, err
	}

	return &hir.Field{Name: c.tree.Text(left), Type: ty}, nil
}
